package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvee/internal/playback"
)

// statusOf returns the HTTP status carried by a huma error.
func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected huma status error, got %v", err)
	return se.GetStatus()
}

type stubPlayer struct {
	mu       sync.Mutex
	startErr error
	ctrlErr  error
	status   playback.Status
	started  []int
	stops    int
	skips    []time.Duration
}

func (p *stubPlayer) Start(_ context.Context, channelID int) (*playback.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, channelID)
	if p.startErr != nil {
		return nil, p.startErr
	}
	s := &playback.Session{ID: "s1", ChannelID: channelID, Candidate: playback.Candidate{Kind: playback.KindPrimary}}
	p.status = playback.Status{Resolver: playback.ResolverCommitted, Health: playback.HealthBuffering, Session: s}
	return s, nil
}

func (p *stubPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.status = playback.Status{Resolver: playback.ResolverIdle, Health: playback.HealthIdle}
}

func (p *stubPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrlErr != nil {
		return p.ctrlErr
	}
	p.status.Paused = true
	return nil
}

func (p *stubPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrlErr != nil {
		return p.ctrlErr
	}
	p.status.Paused = false
	return nil
}

func (p *stubPlayer) Skip(delta time.Duration) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrlErr != nil {
		return 0, p.ctrlErr
	}
	p.skips = append(p.skips, delta)
	p.status.Offset = max(p.status.Offset-delta, 0)
	return p.status.Offset, nil
}

func (p *stubPlayer) Status() playback.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
