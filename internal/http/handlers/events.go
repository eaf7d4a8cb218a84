package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jmylchreest/tvee/internal/epg"
	"github.com/jmylchreest/tvee/internal/events"
	"github.com/jmylchreest/tvee/internal/favorites"
	"github.com/jmylchreest/tvee/internal/playback"
)

// Event stream message types outside the playback event set.
const (
	MessageFavoriteChanged = "favorite_changed"
	MessageEPGUpdated      = "epg_updated"
	MessagePlaybackStatus  = "playback_status"
)

const (
	defaultHeartbeat  = 15 * time.Second
	subscriberBuffer  = 64
	wsWriteWait       = 10 * time.Second
	wsMaxMessageBytes = 4096
)

// WSMessage is one message on the event stream. Over SSE, Type is the
// event name and Payload the data line.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subscribable is an event bus a client can follow.
type Subscribable[T any] interface {
	Subscribe(buffer int) *events.Subscriber[T]
	Unsubscribe(id string)
}

// EventsHandler streams playback, favorites and guide events over SSE and
// WebSocket.
type EventsHandler struct {
	player    Subscribable[playback.Event]
	favorites Subscribable[favorites.Change]
	guide     Subscribable[epg.Update]
	status    PlaybackStatus
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewEventsHandler creates an events handler. Any source may be nil.
func NewEventsHandler(
	player Subscribable[playback.Event],
	favs Subscribable[favorites.Change],
	guide Subscribable[epg.Update],
	logger *slog.Logger,
) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		player:    player,
		favorites: favs,
		guide:     guide,
		heartbeat: defaultHeartbeat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// WithStatus lets WebSocket clients request a player snapshot.
func (h *EventsHandler) WithStatus(status PlaybackStatus) *EventsHandler {
	h.status = status
	return h
}

// SetHeartbeatInterval sets how often idle SSE streams get a comment line.
func (h *EventsHandler) SetHeartbeatInterval(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

// RegisterRoutes registers the streaming routes, which huma cannot describe.
func (h *EventsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/v1/events", h.handleSSE)
	router.Get("/api/v1/events/ws", h.handleWebSocket)
}

// follow subscribes to src and forwards each event as a message until ctx
// ends. The subscription exists when follow returns, so nothing published
// after that is missed.
func follow[T any](ctx context.Context, src Subscribable[T], typeOf func(T) string, out chan<- WSMessage, logger *slog.Logger) {
	if src == nil {
		return
	}
	sub := src.Subscribe(subscriberBuffer)

	go func() {
		defer src.Unsubscribe(sub.ID)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sub.Events:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					logger.Error("encoding event failed", slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- WSMessage{Type: typeOf(evt), Payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// merge fans all sources into one channel.
func (h *EventsHandler) merge(ctx context.Context) <-chan WSMessage {
	out := make(chan WSMessage, subscriberBuffer)
	follow(ctx, h.player, func(e playback.Event) string { return string(e.Type) }, out, h.logger)
	follow(ctx, h.favorites, func(favorites.Change) string { return MessageFavoriteChanged }, out, h.logger)
	follow(ctx, h.guide, func(epg.Update) string { return MessageEPGUpdated }, out, h.logger)
	return out
}

func (h *EventsHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise end the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	msgs := h.merge(ctx)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	fmt.Fprint(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Error("flushing SSE connection failed", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				h.logger.Debug("heartbeat flush failed, client likely disconnected", slog.String("error", err.Error()))
				return
			}
		case msg := <-msgs:
			// One write per event keeps frames whole.
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				h.logger.Debug("event flush failed, client likely disconnected",
					slog.String("event_type", msg.Type),
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (h *EventsHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	msgs := h.merge(ctx)

	h.logger.Debug("websocket client connected", slog.String("remote", r.RemoteAddr))

	// The read loop only handles requests; every write happens below.
	requests := make(chan WSMessage, 1)
	go func() {
		defer cancel()
		conn.SetReadLimit(wsMaxMessageBytes)
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read failed", slog.String("error", err.Error()))
				}
				return
			}
			select {
			case requests <- msg:
			default:
			}
		}
	}()

	ping := time.NewTicker(h.heartbeat)
	defer ping.Stop()

	for {
		var msg WSMessage
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			continue
		case req := <-requests:
			reply, ok := h.reply(req)
			if !ok {
				continue
			}
			msg = reply
		case msg = <-msgs:
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// reply answers a client request. Only "status" is understood.
func (h *EventsHandler) reply(req WSMessage) (WSMessage, bool) {
	if req.Type != "status" || h.status == nil {
		return WSMessage{}, false
	}
	payload, err := json.Marshal(statusResponse(h.status.Status()))
	if err != nil {
		return WSMessage{}, false
	}
	return WSMessage{Type: MessagePlaybackStatus, Payload: payload}, true
}
