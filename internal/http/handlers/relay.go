package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/tvee/internal/urlutil"
	"github.com/jmylchreest/tvee/pkg/httpclient"
)

const hlsContentType = "application/vnd.apple.mpegurl"

// PlaylistFetcher downloads upstream playlists and reports the URL they were
// served from after redirects.
type PlaylistFetcher interface {
	GetBodyURL(ctx context.Context, url string) ([]byte, string, error)
}

// RelayHandler is the BackupRelay origin. It re-serves a channel's primary
// playlist with every URI made absolute, so segments still come straight
// from the provider.
type RelayHandler struct {
	fetcher  PlaylistFetcher
	upstream func(channelID int) string
	logger   *slog.Logger
}

// NewRelayHandler creates a relay. upstream maps a channel to its primary
// playlist URL.
func NewRelayHandler(fetcher PlaylistFetcher, upstream func(channelID int) string, logger *slog.Logger) *RelayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayHandler{fetcher: fetcher, upstream: upstream, logger: logger}
}

// RegisterRoutes registers the relay route outside the API prefix.
func (h *RelayHandler) RegisterRoutes(router chi.Router) {
	router.Get("/relay/{channel_id}.m3u8", h.handlePlaylist)
}

func (h *RelayHandler) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.Atoi(chi.URLParam(r, "channel_id"))
	if err != nil || channelID <= 0 {
		http.Error(w, "invalid channel id", http.StatusBadRequest)
		return
	}

	upstreamURL := h.upstream(channelID)
	body, servedURL, err := h.fetcher.GetBodyURL(r.Context(), upstreamURL)
	if err != nil {
		status := http.StatusBadGateway
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone) {
			status = http.StatusNotFound
		}
		h.logger.WarnContext(r.Context(), "relay upstream failed",
			slog.Int("channel_id", channelID),
			slog.String("host", urlutil.Host(upstreamURL)),
			slog.String("error", err.Error()))
		http.Error(w, http.StatusText(status), status)
		return
	}

	out, err := rewritePlaylist(body, servedURL)
	if err != nil {
		h.logger.WarnContext(r.Context(), "relay playlist rejected",
			slog.Int("channel_id", channelID),
			slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", hlsContentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(out)
}

// rewritePlaylist resolves every segment and variant URI against the URL
// the playlist was fetched from.
func rewritePlaylist(body []byte, documentURL string) ([]byte, error) {
	pl, err := playlist.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("parsing playlist: %w", err)
	}

	switch p := pl.(type) {
	case *playlist.Media:
		for _, seg := range p.Segments {
			seg.URI = urlutil.Absolutize(documentURL, seg.URI)
		}
	case *playlist.Multivariant:
		for _, v := range p.Variants {
			v.URI = urlutil.Absolutize(documentURL, v.URI)
		}
	default:
		return nil, fmt.Errorf("unsupported playlist type %T", pl)
	}

	return pl.Marshal()
}
