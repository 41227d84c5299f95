package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/set-night/shopassist/internal/middleware"
	"github.com/set-night/shopassist/internal/widget"
)

const eventWriteTimeout = 5 * time.Second

// ChatEvents streams widget events over a websocket. The current state is sent first.
func (h *Handler) ChatEvents(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		slog.Error("accept websocket", "error", err, "client_id", clientID)
		return
	}
	defer ws.CloseNow()

	events, release := h.widget.Hub().Subscribe(clientID)
	defer release()

	// Reads only detect the client going away; inbound frames are ignored.
	ctx := ws.CloseRead(r.Context())

	snapshot := widget.Event{Type: widget.EventMessage, State: h.widget.Mount(ctx, clientID)}
	if err := writeEvent(ctx, ws, snapshot); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(ctx, ws, ev); err != nil {
				slog.Debug("websocket write", "error", err, "client_id", clientID)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, ws *websocket.Conn, ev widget.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}
