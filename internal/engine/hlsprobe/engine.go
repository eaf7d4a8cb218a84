// Package hlsprobe is a headless playback engine. It follows a live HLS
// stream the way a player would (playlist refresh, live-edge positioning,
// segment download) and reports readiness and the elementary streams it
// finds, without decoding any media.
package hlsprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/playback"
	"github.com/jmylchreest/tvee/internal/urlutil"
	"github.com/jmylchreest/tvee/pkg/httpclient"
)

// Default tuning.
const (
	DefaultMaxSegmentFailures = 3
	DefaultMinPoll            = 500 * time.Millisecond
	DefaultFetchTimeout       = 10 * time.Second
)

// ErrNoSource is returned by Play before any source was loaded.
var ErrNoSource = errors.New("no source loaded")

// ErrSourceGone is the terminal error for a playlist answered with 404 or 410.
var ErrSourceGone = errors.New("stream no longer available")

// ErrTooManyFailures is the terminal error after consecutive fetch or demux failures.
var ErrTooManyFailures = errors.New("too many consecutive segment failures")

// Fetcher downloads playlists and segments. GetBodyURL also reports the
// URL after redirects, which relative playlist URIs resolve against.
type Fetcher interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
	GetBodyURL(ctx context.Context, url string) ([]byte, string, error)
}

// Engine implements playback.Engine.
type Engine struct {
	fetcher     Fetcher
	logger      *slog.Logger
	maxFailures int
	minPoll     time.Duration

	mu         sync.Mutex
	url        string
	opts       playback.LoadOptions
	offset     time.Duration
	state      playback.EngineState
	failures   int
	generation uint64

	cancel context.CancelFunc
	done   chan struct{}
}

var _ playback.Engine = (*Engine)(nil)

// New creates an engine that downloads through fetcher.
func New(fetcher Fetcher) *Engine {
	return &Engine{
		fetcher:     fetcher,
		logger:      slog.Default(),
		maxFailures: DefaultMaxSegmentFailures,
		minPoll:     DefaultMinPoll,
	}
}

// NewDefault creates an engine backed by a resilient HTTP client.
func NewDefault(timeout time.Duration) *Engine {
	cfg := httpclient.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.RetryAttempts = 1
	return New(httpclient.New(cfg))
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger.With(slog.String("component", "hlsprobe"))
	return e
}

// WithMaxSegmentFailures sets how many consecutive failures are tolerated
// before the engine reports a terminal error.
func (e *Engine) WithMaxSegmentFailures(n int) *Engine {
	if n > 0 {
		e.maxFailures = n
	}
	return e
}

// WithMinPoll sets the shortest playlist refresh interval.
func (e *Engine) WithMinPoll(d time.Duration) *Engine {
	if d > 0 {
		e.minPoll = d
	}
	return e
}

// LoadSource replaces the current item and resets state. Nothing is fetched
// until Play.
func (e *Engine) LoadSource(_ context.Context, url string, opts playback.LoadOptions) error {
	e.stopLoop()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.url = url
	e.opts = opts
	e.offset = max(opts.LiveEdgeOffset, 0)
	e.state = playback.EngineState{}
	e.failures = 0

	e.logger.Debug("source loaded",
		slog.String("host", urlutil.Host(url)),
		slog.Duration("live_edge_offset", e.offset),
		slog.Duration("forward_buffer", opts.ForwardBuffer))
	return nil
}

// Play starts or resumes following the stream.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.url == "" {
		e.mu.Unlock()
		return ErrNoSource
	}
	e.state.Paused = false
	e.state.Rate = 1
	running := e.cancel != nil
	e.mu.Unlock()

	if !running {
		e.startLoop()
	}
	return nil
}

// Pause stops playback. Downloading continues while paused only when the
// source was loaded with NetworkWhilePaused.
func (e *Engine) Pause() error {
	e.mu.Lock()
	e.state.Paused = true
	e.state.Rate = 0
	keepFetching := e.opts.NetworkWhilePaused
	e.mu.Unlock()

	if !keepFetching {
		e.stopLoop()
	}
	return nil
}

// Seek moves the play position to offset behind the live edge.
func (e *Engine) Seek(offset time.Duration) error {
	e.mu.Lock()
	e.offset = max(offset, 0)
	e.mu.Unlock()
	return nil
}

// Offset returns the current distance behind the live edge.
func (e *Engine) Offset() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// State returns a copy of the current state.
func (e *Engine) State() playback.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.state
	st.Tracks = slices.Clone(e.state.Tracks)
	return st
}

// Close stops all background work.
func (e *Engine) Close() {
	e.stopLoop()
}

func (e *Engine) startLoop() {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go e.loop(ctx, done)
}

func (e *Engine) stopLoop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait, terminal := e.step(ctx)
		if terminal {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// step performs one refresh: playlist, segment at the play position, demux.
// It returns how long to wait before the next refresh, and whether the
// engine reached a terminal error.
func (e *Engine) step(ctx context.Context) (time.Duration, bool) {
	e.mu.Lock()
	gen := e.generation
	url, opts, offset := e.url, e.opts, e.offset
	e.mu.Unlock()

	pl, err := e.fetchMedia(ctx, url, opts.StartOnFirstEligibleVariant)
	if err != nil {
		if ctx.Err() != nil {
			return 0, true
		}
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone) {
			return 0, e.terminate(gen, fmt.Errorf("%w: %w", ErrSourceGone, err))
		}
		return e.minPoll, e.fail(gen, err)
	}

	segments := pl.media.Segments
	idx, ahead, total := position(segments, offset)
	segURL := urlutil.Absolutize(pl.url, segments[idx].URI)

	data, err := e.fetcher.GetBody(ctx, segURL)
	if err != nil {
		if ctx.Err() != nil {
			return 0, true
		}
		return e.minPoll, e.fail(gen, fmt.Errorf("fetching segment: %w", err))
	}

	tracks, err := demuxTracks(data)
	if err != nil {
		return e.minPoll, e.fail(gen, err)
	}

	ready := true
	if opts.WaitToMinimizeStalling {
		ready = ahead >= min(opts.ForwardBuffer, total)
	}

	e.mu.Lock()
	if gen == e.generation {
		e.failures = 0
		e.state.Tracks = tracks
		e.state.ReadyToPlay = e.state.ReadyToPlay || ready
		if !e.state.Paused {
			e.state.Rate = 1
		}
	}
	e.mu.Unlock()

	return pollInterval(pl.media, e.minPoll), false
}

// fail records a non-terminal failure. While it lasts the engine is not
// advancing, so the rate drops to zero.
func (e *Engine) fail(gen uint64, err error) bool {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return false
	}
	e.failures++
	failures := e.failures
	e.state.Rate = 0
	e.mu.Unlock()

	e.logger.Debug("refresh failed",
		slog.Int("consecutive_failures", failures),
		slog.String("error", err.Error()))

	if failures >= e.maxFailures {
		return e.terminate(gen, fmt.Errorf("%w: %w", ErrTooManyFailures, err))
	}
	return false
}

func (e *Engine) terminate(gen uint64, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return false
	}
	e.state.Err = err
	e.state.Rate = 0
	e.logger.Warn("playback error", slog.String("error", err.Error()))
	return true
}
