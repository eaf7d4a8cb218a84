package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/events"
)

// SkipStep is the distance moved by SkipBack and SkipForward.
const SkipStep = 10 * time.Second

// Monitor supervises the engine for one session at a time.
type Monitor interface {
	Start(session Session)
	Stop()
	State() HealthState
}

// Status is a snapshot of the player.
type Status struct {
	Resolver ResolverState `json:"resolver"`
	Health   HealthState   `json:"health"`
	Session  *Session      `json:"session,omitempty"`
	Offset   time.Duration `json:"offset"`
	Paused   bool          `json:"paused"`
}

// Player wires resolution, configuration, the engine and health monitoring
// behind explicit lifecycle methods.
type Player struct {
	resolver   *Resolver
	configurer *Configurer
	engine     Engine
	monitor    Monitor
	bus        *Bus
	logger     *slog.Logger

	// mu serializes every change to the engine and the active session.
	mu        sync.Mutex
	sessionID string
	offset    time.Duration
	paused    bool
}

// NewPlayer creates a player. The bus should be the one given to the resolver,
// configurer and monitor; a nil bus gets a private one.
func NewPlayer(resolver *Resolver, configurer *Configurer, engine Engine, monitor Monitor, bus *Bus) *Player {
	if bus == nil {
		bus = NewBus(nil)
	}
	return &Player{
		resolver:   resolver,
		configurer: configurer,
		engine:     engine,
		monitor:    monitor,
		bus:        bus,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger.
func (p *Player) WithLogger(logger *slog.Logger) *Player {
	if logger != nil {
		p.logger = logger.With(slog.String("component", "player"))
	}
	return p
}

// Start resolves channelID, configures the committed session, starts
// playback and begins health monitoring. It supersedes any earlier Start.
func (p *Player) Start(ctx context.Context, channelID int) (*Session, error) {
	session, err := p.resolver.Start(ctx, channelID)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			p.mu.Lock()
			if p.resolver.State() == ResolverFailed {
				p.teardownLocked()
			}
			p.mu.Unlock()
		}
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.resolver.IsCurrent(session.ID) {
		return nil, ErrSuperseded
	}

	p.teardownLocked()

	if _, err := p.configurer.Configure(ctx, p.engine, session); err != nil {
		p.resolver.Stop()
		return nil, err
	}
	p.resolver.Apply(*session)
	p.sessionID = session.ID
	p.offset = session.LiveEdgeOffset
	p.paused = false

	if err := p.engine.Play(); err != nil {
		p.resolver.Stop()
		p.teardownLocked()
		return nil, fmt.Errorf("starting playback: %w", err)
	}

	p.monitor.Start(*session)
	return session, nil
}

// Stop cancels any in-flight resolve, stops monitoring and tears the session down.
func (p *Player) Stop() {
	p.resolver.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	hadSession := p.sessionID != ""
	p.teardownLocked()
	if hadSession {
		p.logger.Info("playback stopped")
	}
	publish(p.bus, Event{Type: EventStopped})
}

// teardownLocked stops the monitor and the engine for the current session.
func (p *Player) teardownLocked() {
	p.monitor.Stop()
	if p.sessionID == "" {
		return
	}
	if err := p.engine.Pause(); err != nil {
		p.logger.Debug("pausing engine during teardown failed", slog.String("error", err.Error()))
	}
	p.configurer.Release(p.sessionID)
	p.sessionID = ""
	p.offset = 0
	p.paused = false
}

// Pause pauses the engine.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sessionID == "" {
		return ErrNoSession
	}
	if err := p.engine.Pause(); err != nil {
		return fmt.Errorf("pausing: %w", err)
	}
	p.paused = true
	return nil
}

// Resume resumes a paused engine.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sessionID == "" {
		return ErrNoSession
	}
	if err := p.engine.Play(); err != nil {
		return fmt.Errorf("resuming: %w", err)
	}
	p.paused = false
	return nil
}

// SkipBack moves SkipStep further behind the live edge.
func (p *Player) SkipBack() (time.Duration, error) {
	return p.Skip(-SkipStep)
}

// SkipForward moves SkipStep towards the live edge.
func (p *Player) SkipForward() (time.Duration, error) {
	return p.Skip(SkipStep)
}

// Skip moves the play position by delta; positive values move towards the
// live edge. The offset never goes below zero. It returns the new offset.
func (p *Player) Skip(delta time.Duration) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sessionID == "" {
		return 0, ErrNoSession
	}

	offset := max(p.offset-delta, 0)
	if err := p.engine.Seek(offset); err != nil {
		return p.offset, fmt.Errorf("seeking: %w", err)
	}
	p.offset = offset
	return offset, nil
}

// Status returns the current player snapshot.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Status{
		Resolver: p.resolver.State(),
		Health:   p.monitor.State(),
		Session:  p.resolver.Session(),
		Offset:   p.offset,
		Paused:   p.paused,
	}
}

// Subscribe registers for playback events.
func (p *Player) Subscribe(buffer int) *events.Subscriber[Event] {
	return p.bus.Subscribe(buffer)
}

// Unsubscribe removes a subscriber.
func (p *Player) Unsubscribe(id string) {
	p.bus.Unsubscribe(id)
}
