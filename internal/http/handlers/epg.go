package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/tvee/internal/epg"
	"github.com/jmylchreest/tvee/pkg/xmltv"
)

// Guide is the programme guide.
type Guide interface {
	NowPlaying(epgChannelID string) (*xmltv.Programme, bool)
	ShortEPG(ctx context.Context, streamID, limit int) ([]epg.Listing, error)
	Refresh(ctx context.Context) error
	Stats() epg.Stats
}

// EPGHandler serves guide lookups.
type EPGHandler struct {
	guide Guide
}

// NewEPGHandler creates an EPG handler.
func NewEPGHandler(guide Guide) *EPGHandler {
	return &EPGHandler{guide: guide}
}

// ProgrammeResponse is a programme airing now.
type ProgrammeResponse struct {
	Channel     string    `json:"channel"`
	Title       string    `json:"title"`
	SubTitle    string    `json:"sub_title,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

// NowPlayingInput is the input for NowPlaying.
type NowPlayingInput struct {
	EPGChannelID string `path:"epg_channel_id" doc:"XMLTV channel ID"`
}

// NowPlayingOutput is the output for NowPlaying.
type NowPlayingOutput struct {
	Body ProgrammeResponse
}

// ShortEPGInput is the input for ShortEPG.
type ShortEPGInput struct {
	StreamID int `path:"stream_id" minimum:"1" doc:"Stream ID"`
	Limit    int `query:"limit" default:"4" minimum:"1" maximum:"50" doc:"Number of listings"`
}

// ShortEPGOutput is the output for ShortEPG.
type ShortEPGOutput struct {
	Body struct {
		StreamID int           `json:"stream_id"`
		Listings []epg.Listing `json:"listings"`
	}
}

// RefreshEPGInput is the input for RefreshEPG.
type RefreshEPGInput struct{}

// RefreshEPGOutput is the output for RefreshEPG.
type RefreshEPGOutput struct {
	Body epg.Stats
}

// Register registers the EPG routes.
func (h *EPGHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getNowPlaying",
		Method:      http.MethodGet,
		Path:        "/api/v1/epg/now/{epg_channel_id}",
		Summary:     "Programme airing now",
		Tags:        []string{"EPG"},
	}, h.NowPlaying)

	huma.Register(api, huma.Operation{
		OperationID: "getShortEPG",
		Method:      http.MethodGet,
		Path:        "/api/v1/epg/short/{stream_id}",
		Summary:     "Upcoming listings",
		Description: "Upcoming programmes for a stream from the provider's short EPG",
		Tags:        []string{"EPG"},
	}, h.ShortEPG)

	huma.Register(api, huma.Operation{
		OperationID: "refreshEPG",
		Method:      http.MethodPost,
		Path:        "/api/v1/epg/refresh",
		Summary:     "Refresh guide",
		Description: "Reloads the XMLTV guide and recomputes what is airing now",
		Tags:        []string{"EPG"},
	}, h.RefreshEPG)
}

// NowPlaying returns the programme airing now on a channel.
func (h *EPGHandler) NowPlaying(_ context.Context, input *NowPlayingInput) (*NowPlayingOutput, error) {
	p, ok := h.guide.NowPlaying(input.EPGChannelID)
	if !ok {
		return nil, huma.Error404NotFound("nothing airing on " + input.EPGChannelID)
	}
	return &NowPlayingOutput{Body: ProgrammeResponse{
		Channel:     p.Channel,
		Title:       p.Title,
		SubTitle:    p.SubTitle,
		Description: p.Description,
		Category:    p.Category,
		Icon:        p.Icon,
		Start:       p.Start,
		Stop:        p.Stop,
	}}, nil
}

// ShortEPG returns upcoming listings for a stream.
func (h *EPGHandler) ShortEPG(ctx context.Context, input *ShortEPGInput) (*ShortEPGOutput, error) {
	listings, err := h.guide.ShortEPG(ctx, input.StreamID, input.Limit)
	if err != nil {
		return nil, huma.Error502BadGateway("provider guide unavailable", err)
	}

	out := &ShortEPGOutput{}
	out.Body.StreamID = input.StreamID
	out.Body.Listings = listings
	return out, nil
}

// RefreshEPG reloads the guide.
func (h *EPGHandler) RefreshEPG(ctx context.Context, _ *RefreshEPGInput) (*RefreshEPGOutput, error) {
	if err := h.guide.Refresh(ctx); err != nil {
		return nil, huma.Error502BadGateway("refreshing guide failed", err)
	}
	return &RefreshEPGOutput{Body: h.guide.Stats()}, nil
}
