package alert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/health"
	"github.com/jmylchreest/tvee/internal/playback"
)

// ToneSink plays the alert tone once.
type ToneSink interface {
	Ring(ctx context.Context) error
}

// BellSink rings the terminal bell.
type BellSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellSink creates a bell sink writing to w.
func NewBellSink(w io.Writer) *BellSink {
	return &BellSink{w: w}
}

// Ring writes the BEL character.
func (b *BellSink) Ring(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, "\a")
	return err
}

// Notifier implements health.Alerter.
type Notifier struct {
	bus     *playback.Bus
	toneURL string
	sink    ToneSink
	logger  *slog.Logger
}

// NewNotifier creates a notifier publishing alert events on bus. toneURL is
// where clients can fetch the tone; sink may be nil.
func NewNotifier(bus *playback.Bus, toneURL string, sink ToneSink) *Notifier {
	return &Notifier{
		bus:     bus,
		toneURL: toneURL,
		sink:    sink,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger.
func (n *Notifier) WithLogger(logger *slog.Logger) *Notifier {
	if logger != nil {
		n.logger = logger.With(slog.String("component", "alert"))
	}
	return n
}

// Alert delivers one user-facing alert and rings the tone once.
func (n *Notifier) Alert(ctx context.Context, a health.Alert) {
	msg := Message(a)
	n.logger.Warn(msg,
		slog.Int("channel_id", a.ChannelID),
		slog.String("session_id", a.SessionID),
		slog.String("state", string(a.State)),
	)

	if n.bus != nil {
		n.bus.Publish(playback.Event{
			Type:      playback.EventAlert,
			Time:      time.Now(),
			ChannelID: a.ChannelID,
			SessionID: a.SessionID,
			Health:    a.State,
			Message:   msg,
			ToneURL:   n.toneURL,
		})
	}

	if n.sink != nil {
		if err := n.sink.Ring(ctx); err != nil {
			n.logger.Debug("alert tone failed", slog.String("error", err.Error()))
		}
	}
}

// Message returns the user-facing text for an alert.
func Message(a health.Alert) string {
	switch a.State {
	case playback.HealthAudioMissing:
		return "This channel is playing without audio"
	case playback.HealthStalled:
		return "Playback has stalled"
	case playback.HealthPlaybackError:
		if a.Message != "" {
			return fmt.Sprintf("Playback failed: %s", a.Message)
		}
		return "Playback failed"
	default:
		return fmt.Sprintf("Playback problem: %s", a.State)
	}
}

var _ health.Alerter = (*Notifier)(nil)
