package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/playback"
)

// LoadCall records one LoadSource call.
type LoadCall struct {
	URL     string
	Options playback.LoadOptions
}

// FakeEngine is a playback.Engine whose State follows a script.
// Each State call consumes one scripted entry; the last entry repeats.
type FakeEngine struct {
	mu      sync.Mutex
	script  []playback.EngineState
	state   playback.EngineState
	loads   []LoadCall
	plays   int
	pauses  int
	seeks   []time.Duration
	polls   int
	LoadErr error
}

// NewFakeEngine creates a fake engine with an optional state script.
func NewFakeEngine(script ...playback.EngineState) *FakeEngine {
	return &FakeEngine{script: script}
}

// LoadSource implements playback.Engine.
func (f *FakeEngine) LoadSource(_ context.Context, url string, opts playback.LoadOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.loads = append(f.loads, LoadCall{URL: url, Options: opts})
	return nil
}

// Play implements playback.Engine.
func (f *FakeEngine) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	f.state.Paused = false
	return nil
}

// Pause implements playback.Engine.
func (f *FakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	f.state.Paused = true
	f.state.Rate = 0
	return nil
}

// Seek implements playback.Engine.
func (f *FakeEngine) Seek(offset time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, offset)
	return nil
}

// State implements playback.StateReader.
func (f *FakeEngine) State() playback.EngineState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.script) > 0 {
		f.state = f.script[0]
		if len(f.script) > 1 {
			f.script = f.script[1:]
		}
	}
	return f.state
}

// SetScript replaces the remaining state script.
func (f *FakeEngine) SetScript(script ...playback.EngineState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = script
}

// Loads returns all LoadSource calls.
func (f *FakeEngine) Loads() []LoadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LoadCall(nil), f.loads...)
}

// Plays returns the number of Play calls.
func (f *FakeEngine) Plays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

// Pauses returns the number of Pause calls.
func (f *FakeEngine) Pauses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses
}

// Seeks returns all Seek offsets.
func (f *FakeEngine) Seeks() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.seeks...)
}

// Polls returns the number of State calls.
func (f *FakeEngine) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// Healthy returns a ready state with one video and one audio track.
func Healthy() playback.EngineState {
	return playback.EngineState{
		ReadyToPlay: true,
		Rate:        1,
		Tracks: []playback.Track{
			{Kind: playback.TrackVideo, Codec: "h264"},
			{Kind: playback.TrackAudio, Codec: "aac"},
		},
	}
}

// Buffering returns a not-ready state.
func Buffering() playback.EngineState {
	return playback.EngineState{}
}

// VideoOnly returns a ready state without audio.
func VideoOnly() playback.EngineState {
	return playback.EngineState{
		ReadyToPlay: true,
		Rate:        1,
		Tracks:      []playback.Track{{Kind: playback.TrackVideo, Codec: "h264"}},
	}
}
