package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/observability"
)

// Settings are the live-stream parameters applied to every new session.
type Settings struct {
	LiveEdgeOffset         time.Duration
	ForwardBuffer          time.Duration
	NetworkWhilePaused     bool
	WaitToMinimizeStalling bool
}

// LoadOptions converts settings to engine load options.
func (s Settings) LoadOptions() LoadOptions {
	return LoadOptions{
		LiveEdgeOffset:         s.LiveEdgeOffset,
		ForwardBuffer:          s.ForwardBuffer,
		NetworkWhilePaused:     s.NetworkWhilePaused,
		WaitToMinimizeStalling: s.WaitToMinimizeStalling,
		// Start on the first listed variant rather than waiting for the best one.
		StartOnFirstEligibleVariant: true,
	}
}

// Configurer loads a committed session into the engine exactly once.
type Configurer struct {
	settings Settings
	bus      *Bus
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	configured map[string]struct{}
}

// NewConfigurer creates a configurer applying settings.
func NewConfigurer(settings Settings) *Configurer {
	return &Configurer{
		settings:   settings,
		logger:     slog.Default(),
		now:        time.Now,
		configured: make(map[string]struct{}),
	}
}

// WithLogger sets the logger.
func (c *Configurer) WithLogger(logger *slog.Logger) *Configurer {
	if logger != nil {
		c.logger = logger.With(slog.String("component", "configurer"))
	}
	return c
}

// WithBus sets the event bus.
func (c *Configurer) WithBus(bus *Bus) *Configurer {
	c.bus = bus
	return c
}

// Settings returns the applied settings.
func (c *Configurer) Settings() Settings {
	return c.settings
}

// Configure applies the settings to s and loads its candidate into the
// engine. A second call for the same session ID changes nothing and returns
// false.
func (c *Configurer) Configure(ctx context.Context, engine Engine, s *Session) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.configured[s.ID]; done {
		observability.WithChannel(c.logger, s.ChannelID).Debug("session already configured",
			slog.String("session_id", s.ID),
		)
		publish(c.bus, Event{Type: EventConfigurationNoop, ChannelID: s.ChannelID, SessionID: s.ID})
		return false, nil
	}

	if err := engine.LoadSource(ctx, s.Candidate.URL, c.settings.LoadOptions()); err != nil {
		return false, fmt.Errorf("loading source for channel %d: %w", s.ChannelID, err)
	}

	s.LiveEdgeOffset = c.settings.LiveEdgeOffset
	s.ForwardBuffer = c.settings.ForwardBuffer
	s.ConfiguredAt = c.now()
	c.configured[s.ID] = struct{}{}

	observability.WithChannel(c.logger, s.ChannelID).Info("session configured",
		slog.String("session_id", s.ID),
		slog.Duration("live_edge_offset", s.LiveEdgeOffset),
		slog.Duration("forward_buffer", s.ForwardBuffer),
	)
	publish(c.bus, Event{Type: EventConfigured, ChannelID: s.ChannelID, SessionID: s.ID})
	return true, nil
}

// Release forgets a torn-down session.
func (c *Configurer) Release(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.configured, sessionID)
}
