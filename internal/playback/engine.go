package playback

import (
	"context"
	"time"
)

// TrackKind classifies an elementary stream reported by the engine.
type TrackKind string

// Track kinds.
const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
	TrackOther TrackKind = "other"
)

// Track is one elementary stream of the current item.
type Track struct {
	Kind  TrackKind `json:"kind"`
	Codec string    `json:"codec"`
}

// LoadOptions are the never-ending stream policies applied when a source is loaded.
type LoadOptions struct {
	LiveEdgeOffset              time.Duration
	ForwardBuffer               time.Duration
	NetworkWhilePaused          bool
	WaitToMinimizeStalling      bool
	StartOnFirstEligibleVariant bool
}

// EngineState is a point-in-time view of the external playback engine.
type EngineState struct {
	ReadyToPlay bool    `json:"ready_to_play"`
	Err         error   `json:"-"`
	Rate        float64 `json:"rate"`
	Paused      bool    `json:"paused"`
	Tracks      []Track `json:"tracks"`
}

// HasAudio reports whether any track is audio.
func (s EngineState) HasAudio() bool {
	for _, t := range s.Tracks {
		if t.Kind == TrackAudio {
			return true
		}
	}
	return false
}

// StateReader exposes engine state for polling.
type StateReader interface {
	State() EngineState
}

// Engine is the external media engine the core configures and observes.
// Decoding happens inside the engine.
type Engine interface {
	StateReader

	// LoadSource replaces the current item. Options apply until the next load.
	LoadSource(ctx context.Context, url string, opts LoadOptions) error
	Play() error
	Pause() error
	// Seek sets the position as an offset behind the live edge.
	Seek(offset time.Duration) error
}
