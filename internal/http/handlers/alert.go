package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ToneSource renders the alert tone.
type ToneSource interface {
	WAV() ([]byte, error)
}

// AlertHandler serves the alert tone clients play when a session fails.
type AlertHandler struct {
	tone   ToneSource
	logger *slog.Logger
}

// NewAlertHandler creates an alert handler.
func NewAlertHandler(tone ToneSource, logger *slog.Logger) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{tone: tone, logger: logger}
}

// RegisterRoutes registers the tone route. The body is binary, so it is
// served outside huma.
func (h *AlertHandler) RegisterRoutes(router chi.Router) {
	router.Get(ToneURLPath, h.handleTone)
}

// ToneURLPath is the path of the alert tone.
const ToneURLPath = "/api/v1/alert/tone.wav"

func (h *AlertHandler) handleTone(w http.ResponseWriter, r *http.Request) {
	data, err := h.tone.WAV()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "rendering alert tone failed", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}
