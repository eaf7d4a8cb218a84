package playback

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/tvee/internal/events"
)

// EventType names a playback event.
type EventType string

// Resolve, configuration, health and lifecycle events.
const (
	EventResolveStarted    EventType = "resolve_started"
	EventCommitted         EventType = "committed"
	EventSourceUnavailable EventType = "source_unavailable"
	EventSuperseded        EventType = "superseded"
	EventConfigured        EventType = "configured"
	EventConfigurationNoop EventType = "configuration_noop"
	EventHealthState       EventType = "health_state"
	EventStalled           EventType = "stalled"
	EventAudioMissing      EventType = "audio_missing"
	EventPlaybackError     EventType = "playback_error"
	EventAlert             EventType = "alert"
	EventStopped           EventType = "stopped"
)

// HealthState is the health classification of the active session.
type HealthState string

// Health states. Stalled, AudioMissing and PlaybackError are terminal for a session.
const (
	HealthIdle          HealthState = "idle"
	HealthBuffering     HealthState = "buffering"
	HealthHealthy       HealthState = "healthy"
	HealthStalled       HealthState = "stalled"
	HealthAudioMissing  HealthState = "audio_missing"
	HealthPlaybackError HealthState = "playback_error"
)

// IsTerminal reports whether no further transitions happen in this session.
func (h HealthState) IsTerminal() bool {
	switch h {
	case HealthStalled, HealthAudioMissing, HealthPlaybackError:
		return true
	default:
		return false
	}
}

// EventType returns the failure event for a terminal state, or "".
func (h HealthState) EventType() EventType {
	switch h {
	case HealthStalled:
		return EventStalled
	case HealthAudioMissing:
		return EventAudioMissing
	case HealthPlaybackError:
		return EventPlaybackError
	default:
		return ""
	}
}

// Event is published on the playback bus.
type Event struct {
	Type      EventType   `json:"type"`
	Time      time.Time   `json:"time"`
	ChannelID int         `json:"channel_id,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Candidate *Candidate  `json:"candidate,omitempty"`
	Health    HealthState `json:"health,omitempty"`
	Message   string      `json:"message,omitempty"`
	ToneURL   string      `json:"tone_url,omitempty"`
}

// Bus carries playback events.
type Bus = events.Bus[Event]

// NewBus creates a playback event bus.
func NewBus(logger *slog.Logger) *Bus {
	return events.NewBus[Event]("playback", logger)
}

// publish stamps and publishes an event. A nil bus is allowed.
func publish(bus *Bus, e Event) {
	if bus == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	bus.Publish(e)
}
