package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/tvee/internal/playback"
)

// Player controls the single playback session.
type Player interface {
	Start(ctx context.Context, channelID int) (*playback.Session, error)
	Stop()
	Pause() error
	Resume() error
	Skip(delta time.Duration) (time.Duration, error)
	Status() playback.Status
}

// PlaybackHandler exposes the player.
type PlaybackHandler struct {
	player Player
	logger *slog.Logger
}

// NewPlaybackHandler creates a playback handler.
func NewPlaybackHandler(player Player, logger *slog.Logger) *PlaybackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackHandler{player: player, logger: logger}
}

// PlaybackStatusResponse is the player snapshot.
type PlaybackStatusResponse struct {
	Resolver      playback.ResolverState `json:"resolver"`
	Health        playback.HealthState   `json:"health"`
	Session       *playback.Session      `json:"session,omitempty"`
	OffsetSeconds float64                `json:"offset_seconds"`
	Paused        bool                   `json:"paused"`
}

func statusResponse(st playback.Status) PlaybackStatusResponse {
	return PlaybackStatusResponse{
		Resolver:      st.Resolver,
		Health:        st.Health,
		Session:       st.Session,
		OffsetSeconds: st.Offset.Seconds(),
		Paused:        st.Paused,
	}
}

// StartPlaybackInput is the input for StartPlayback.
type StartPlaybackInput struct {
	Body struct {
		ChannelID int `json:"channel_id" minimum:"1" doc:"Stream ID to play"`
	}
}

// SkipInput is the input for Skip.
type SkipInput struct {
	Body struct {
		Seconds int `json:"seconds" doc:"Positive moves towards the live edge, negative moves back"`
	}
}

// PlaybackInput is the input for body-less playback controls.
type PlaybackInput struct{}

// PlaybackOutput is the player snapshot after a control.
type PlaybackOutput struct {
	Body PlaybackStatusResponse
}

// Register registers the playback routes.
func (h *PlaybackHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "startPlayback",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/start",
		Summary:     "Start playback",
		Description: "Resolves a verified source for the channel, configures it and starts health monitoring",
		Tags:        []string{"Playback"},
	}, h.StartPlayback)

	huma.Register(api, huma.Operation{
		OperationID: "stopPlayback",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/stop",
		Summary:     "Stop playback",
		Tags:        []string{"Playback"},
	}, h.StopPlayback)

	huma.Register(api, huma.Operation{
		OperationID: "pausePlayback",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/pause",
		Summary:     "Pause playback",
		Tags:        []string{"Playback"},
	}, h.PausePlayback)

	huma.Register(api, huma.Operation{
		OperationID: "resumePlayback",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/resume",
		Summary:     "Resume playback",
		Tags:        []string{"Playback"},
	}, h.ResumePlayback)

	huma.Register(api, huma.Operation{
		OperationID: "skipPlayback",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/skip",
		Summary:     "Skip",
		Description: "Moves the play position relative to the live edge; it never passes the edge",
		Tags:        []string{"Playback"},
	}, h.Skip)

	huma.Register(api, huma.Operation{
		OperationID: "getPlaybackStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/playback/status",
		Summary:     "Playback status",
		Tags:        []string{"Playback"},
	}, h.GetStatus)
}

// StartPlayback starts playing a channel.
func (h *PlaybackHandler) StartPlayback(ctx context.Context, input *StartPlaybackInput) (*PlaybackOutput, error) {
	if _, err := h.player.Start(ctx, input.Body.ChannelID); err != nil {
		h.logger.InfoContext(ctx, "playback start failed",
			slog.Int("channel_id", input.Body.ChannelID),
			slog.String("error", err.Error()))
		return nil, playbackError(err)
	}
	return &PlaybackOutput{Body: statusResponse(h.player.Status())}, nil
}

// StopPlayback stops playback. It is idempotent.
func (h *PlaybackHandler) StopPlayback(_ context.Context, _ *PlaybackInput) (*PlaybackOutput, error) {
	h.player.Stop()
	return &PlaybackOutput{Body: statusResponse(h.player.Status())}, nil
}

// PausePlayback pauses the active session.
func (h *PlaybackHandler) PausePlayback(_ context.Context, _ *PlaybackInput) (*PlaybackOutput, error) {
	if err := h.player.Pause(); err != nil {
		return nil, playbackError(err)
	}
	return &PlaybackOutput{Body: statusResponse(h.player.Status())}, nil
}

// ResumePlayback resumes the active session.
func (h *PlaybackHandler) ResumePlayback(_ context.Context, _ *PlaybackInput) (*PlaybackOutput, error) {
	if err := h.player.Resume(); err != nil {
		return nil, playbackError(err)
	}
	return &PlaybackOutput{Body: statusResponse(h.player.Status())}, nil
}

// Skip moves the play position.
func (h *PlaybackHandler) Skip(_ context.Context, input *SkipInput) (*PlaybackOutput, error) {
	if _, err := h.player.Skip(time.Duration(input.Body.Seconds) * time.Second); err != nil {
		return nil, playbackError(err)
	}
	return &PlaybackOutput{Body: statusResponse(h.player.Status())}, nil
}

// GetStatus returns the player snapshot.
func (h *PlaybackHandler) GetStatus(_ context.Context, _ *PlaybackInput) (*PlaybackOutput, error) {
	return &PlaybackOutput{Body: statusResponse(h.player.Status())}, nil
}

// playbackError maps player errors to HTTP errors. Probe and network detail
// never leaves the resolver, so SourceUnavailable is the only failure a
// client sees for a channel.
func playbackError(err error) error {
	switch {
	case errors.Is(err, playback.ErrSourceUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, playback.ErrSuperseded):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, playback.ErrNoSession):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, context.Canceled):
		return huma.NewError(499, "request cancelled")
	default:
		return huma.Error500InternalServerError("playback failed", err)
	}
}
