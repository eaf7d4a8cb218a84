package playback

import (
	"time"

	"github.com/google/uuid"
)

// Session is the single active playback session.
// LiveEdgeOffset and ForwardBuffer are zero until the session is configured.
type Session struct {
	ID             string        `json:"id"`
	ChannelID      int           `json:"channel_id"`
	StartedAt      time.Time     `json:"started_at"`
	Candidate      Candidate     `json:"candidate"`
	LiveEdgeOffset time.Duration `json:"live_edge_offset"`
	ForwardBuffer  time.Duration `json:"forward_buffer"`
	ConfiguredAt   time.Time     `json:"configured_at,omitzero"`
}

func newSession(channelID int, candidate Candidate, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		StartedAt: now,
		Candidate: candidate,
	}
}

// Configured reports whether session parameters have been applied.
func (s *Session) Configured() bool {
	return !s.ConfiguredAt.IsZero()
}
