// Package health supervises the playback engine and classifies the health of
// the active session.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/observability"
	"github.com/jmylchreest/tvee/internal/playback"
)

// Alert describes one failure that must be shown to the user.
type Alert struct {
	State     playback.HealthState
	ChannelID int
	SessionID string
	Message   string
}

// Alerter notifies the user of a failure. It is called once per failure.
type Alerter interface {
	Alert(ctx context.Context, alert Alert)
}

// Options controls polling.
type Options struct {
	// BufferingPoll is the interval while buffering.
	BufferingPoll time.Duration
	// HealthyPoll caps the interval once healthy; the interval doubles each
	// healthy tick until it reaches this value.
	HealthyPoll time.Duration
	// StallTimeout is how long a healthy session may sit at rate 0 unpaused.
	StallTimeout time.Duration
}

// DefaultOptions returns the recommended polling cadence.
func DefaultOptions() Options {
	return Options{
		BufferingPoll: 100 * time.Millisecond,
		HealthyPoll:   2 * time.Second,
		StallTimeout:  10 * time.Second,
	}
}

// Monitor polls a playback.StateReader and reports failures. It only reads
// engine state and never retries.
type Monitor struct {
	engine  playback.StateReader
	opts    Options
	bus     *playback.Bus
	alerter Alerter
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	session    *playback.Session
	state      playback.HealthState
	emitted    map[playback.HealthState]bool
	stallSince time.Time
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewMonitor creates a monitor for engine.
func NewMonitor(engine playback.StateReader, opts Options) *Monitor {
	if opts.BufferingPoll <= 0 {
		opts.BufferingPoll = DefaultOptions().BufferingPoll
	}
	if opts.HealthyPoll < opts.BufferingPoll {
		opts.HealthyPoll = opts.BufferingPoll
	}
	return &Monitor{
		engine: engine,
		opts:   opts,
		logger: slog.Default(),
		now:    time.Now,
		state:  playback.HealthIdle,
	}
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	if logger != nil {
		m.logger = logger.With(slog.String("component", "health_monitor"))
	}
	return m
}

// WithBus sets the event bus.
func (m *Monitor) WithBus(bus *playback.Bus) *Monitor {
	m.bus = bus
	return m
}

// WithAlerter sets the alerter.
func (m *Monitor) WithAlerter(alerter Alerter) *Monitor {
	m.alerter = alerter
	return m
}

// Start begins monitoring session, replacing any previous session.
func (m *Monitor) Start(session playback.Session) {
	m.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.reset(&session)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.publishState(session, playback.HealthBuffering)
	go m.run(ctx, done)
}

// Stop ends monitoring and waits for the polling loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.session = nil
	m.state = playback.HealthIdle
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// State returns the current health state.
func (m *Monitor) State() playback.HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) reset(session *playback.Session) {
	m.session = session
	m.state = playback.HealthBuffering
	m.emitted = make(map[playback.HealthState]bool)
	m.stallSince = time.Time{}
	m.interval = m.opts.BufferingPoll
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(m.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if terminal := m.tick(ctx); terminal {
				return
			}
			timer.Reset(m.currentInterval())
		}
	}
}

func (m *Monitor) currentInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// tick takes one health snapshot and classifies it. It reports whether the
// session reached a terminal state.
func (m *Monitor) tick(ctx context.Context) bool {
	m.mu.Lock()
	stopped := m.session == nil || m.state.IsTerminal()
	m.mu.Unlock()
	if stopped {
		return true
	}

	snapshot := m.engine.State()
	now := m.now()

	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return true
	}

	session := *m.session
	prev := m.state
	next, message := m.classify(snapshot, now)
	m.state = next

	switch {
	case next == playback.HealthHealthy:
		if prev != playback.HealthHealthy {
			m.interval = m.opts.BufferingPoll
		}
		m.interval = min(m.interval*2, m.opts.HealthyPoll)
	case next == playback.HealthBuffering:
		m.interval = m.opts.BufferingPoll
	}

	fire := next.IsTerminal() && !m.emitted[next]
	if fire {
		m.emitted[next] = true
	}
	m.mu.Unlock()

	if next != prev {
		m.publishState(session, next)
	}
	if fire {
		m.fail(ctx, session, next, message)
	}
	return next.IsTerminal()
}

// classify must be called with m.mu held.
func (m *Monitor) classify(s playback.EngineState, now time.Time) (playback.HealthState, string) {
	if s.Err != nil {
		return playback.HealthPlaybackError, s.Err.Error()
	}
	if !s.ReadyToPlay {
		m.stallSince = time.Time{}
		return playback.HealthBuffering, ""
	}
	if !s.HasAudio() {
		return playback.HealthAudioMissing, "stream has no audio track"
	}

	if m.state == playback.HealthHealthy && s.Rate == 0 && !s.Paused {
		if m.stallSince.IsZero() {
			m.stallSince = now
		}
		if m.opts.StallTimeout > 0 && now.Sub(m.stallSince) >= m.opts.StallTimeout {
			return playback.HealthStalled, "playback stalled"
		}
		return playback.HealthHealthy, ""
	}

	m.stallSince = time.Time{}
	return playback.HealthHealthy, ""
}

func (m *Monitor) fail(ctx context.Context, session playback.Session, state playback.HealthState, message string) {
	observability.WithChannel(m.logger, session.ChannelID).Warn("playback failure",
		slog.String("state", string(state)),
		slog.String("session_id", session.ID),
		slog.String("message", message),
	)

	if m.bus != nil {
		m.bus.Publish(playback.Event{
			Type:      state.EventType(),
			Time:      m.now(),
			ChannelID: session.ChannelID,
			SessionID: session.ID,
			Health:    state,
			Message:   message,
		})
	}

	if m.alerter != nil {
		m.alerter.Alert(ctx, Alert{
			State:     state,
			ChannelID: session.ChannelID,
			SessionID: session.ID,
			Message:   message,
		})
	}
}

func (m *Monitor) publishState(session playback.Session, state playback.HealthState) {
	m.logger.Debug("health state changed",
		slog.String("state", string(state)),
		slog.String("session_id", session.ID),
	)
	if m.bus == nil {
		return
	}
	m.bus.Publish(playback.Event{
		Type:      playback.EventHealthState,
		Time:      m.now(),
		ChannelID: session.ChannelID,
		SessionID: session.ID,
		Health:    state,
	})
}

var _ playback.Monitor = (*Monitor)(nil)
