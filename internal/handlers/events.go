package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/metrics"
	"github.com/Billy-Davies-2/futdraw/internal/pubsub"
)

// keepaliveInterval spaces SSE comments and websocket pings.
var keepaliveInterval = 30 * time.Second

// EventsSSE streams the owner's events as server-sent events.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	me := owner(r)
	eventChan := h.pubsub.SubscribeOwner(me)
	defer h.pubsub.Unsubscribe(eventChan)
	metrics.StreamConnected("sse", 1)
	defer metrics.StreamConnected("sse", -1)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Warn("Failed to encode event", "error", err, "type", event.Type)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected", "owner", me)
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// EventsWS streams the owner's events over a websocket. Client messages are
// ignored; the stream is one-way.
func (h *APIHandlers) EventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("Websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	me := owner(r)
	eventChan := h.pubsub.SubscribeOwner(me)
	defer h.pubsub.Unsubscribe(eventChan)
	metrics.StreamConnected("websocket", 1)
	defer metrics.StreamConnected("websocket", -1)

	// CloseRead handles control frames and cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if err := writeWS(ctx, conn, pubsub.Event{Type: "connected", Owner: me}); err != nil {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeWS(ctx, conn, event); err != nil {
				logger.Debug("Websocket write failed", "error", err, "owner", me)
				return
			}
		case <-keepalive.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			logger.Debug("Websocket client disconnected", "owner", me)
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, event pubsub.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}
