package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/observability"
)

// ResolverState is the state of the source resolver.
type ResolverState string

// Resolver states. Failed is terminal for one attempt; a new Start returns to Probing.
const (
	ResolverIdle      ResolverState = "idle"
	ResolverProbing   ResolverState = "probing"
	ResolverCommitted ResolverState = "committed"
	ResolverFailed    ResolverState = "failed"
)

// Verifier decides whether a candidate may be played.
type Verifier interface {
	Verify(ctx context.Context, candidate Candidate) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, candidate Candidate) bool

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, candidate Candidate) bool {
	return f(ctx, candidate)
}

// Resolver picks exactly one verified candidate per request and owns the
// active session. Only the most recent request may commit.
type Resolver struct {
	source   CandidateSource
	verifier Verifier
	casting  func() bool
	bus      *Bus
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	state      ResolverState
	session    *Session
	generation uint64
	cancel     context.CancelFunc
}

// NewResolver creates a resolver.
func NewResolver(source CandidateSource, verifier Verifier) *Resolver {
	return &Resolver{
		source:   source,
		verifier: verifier,
		casting:  func() bool { return false },
		logger:   slog.Default(),
		now:      time.Now,
		state:    ResolverIdle,
	}
}

// WithLogger sets the logger.
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	if logger != nil {
		r.logger = logger.With(slog.String("component", "resolver"))
	}
	return r
}

// WithBus sets the event bus.
func (r *Resolver) WithBus(bus *Bus) *Resolver {
	r.bus = bus
	return r
}

// WithCasting sets the isCasting signal, read once per resolve.
func (r *Resolver) WithCasting(isCasting func() bool) *Resolver {
	if isCasting != nil {
		r.casting = isCasting
	}
	return r
}

// Start resolves a source for channelID. Candidates are verified one at a
// time in priority order and the first that passes is committed, replacing
// any previous session. A newer Start or a Stop cancels this call, which then
// returns ErrSuperseded without touching the session.
func (r *Resolver) Start(ctx context.Context, channelID int) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	r.cancel = cancel
	r.state = ResolverProbing
	r.mu.Unlock()

	logger := observability.WithChannel(r.logger, channelID)
	publish(r.bus, Event{Type: EventResolveStarted, ChannelID: channelID})

	var chosen *Candidate
	for _, candidate := range r.source.Candidates(channelID, r.casting()) {
		if ctx.Err() != nil {
			break
		}
		if r.verifier.Verify(ctx, candidate) {
			chosen = &candidate
			break
		}
		logger.Debug("candidate rejected", slog.String("kind", string(candidate.Kind)))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		logger.Debug("resolve superseded")
		publish(r.bus, Event{Type: EventSuperseded, ChannelID: channelID})
		return nil, ErrSuperseded
	}
	r.cancel = nil

	if err := ctx.Err(); err != nil && chosen == nil {
		// Caller went away; nothing was committed.
		r.state = ResolverIdle
		return nil, err
	}

	if chosen == nil {
		r.state = ResolverFailed
		r.session = nil
		logger.Warn("no stream source available")
		publish(r.bus, Event{Type: EventSourceUnavailable, ChannelID: channelID, Message: ErrSourceUnavailable.Error()})
		return nil, ErrSourceUnavailable
	}

	r.state = ResolverCommitted
	r.session = newSession(channelID, *chosen, r.now())
	logger.Info("stream source committed",
		slog.String("kind", string(chosen.Kind)),
		slog.String("session_id", r.session.ID),
	)
	publish(r.bus, Event{
		Type:      EventCommitted,
		ChannelID: channelID,
		SessionID: r.session.ID,
		Candidate: chosen,
	})

	s := *r.session
	return &s, nil
}

// Stop cancels any in-flight resolve and tears down the session.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.generation++
	r.state = ResolverIdle
	r.session = nil
}

// Apply replaces the stored session with s when s is still the active
// session. It reports whether the update was accepted.
func (r *Resolver) Apply(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil || r.session.ID != s.ID {
		return false
	}
	r.session = &s
	return true
}

// IsCurrent reports whether sessionID is the active session.
func (r *Resolver) IsCurrent(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && r.session.ID == sessionID
}

// State returns the resolver state.
func (r *Resolver) State() ResolverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session returns a copy of the active session, or nil.
func (r *Resolver) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	s := *r.session
	return &s
}

// IsSourceUnavailable reports whether err means every candidate failed.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
