package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/spbe-academy/devops-academy/internal/academy"
)

const eventWriteTimeout = 5 * time.Second

// handleEvents streams the session's activity and identity events over a
// websocket until the client goes away or the session signs out.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	// Subscribe before the handshake completes so no event after it is missed.
	events, cancel := s.Events.Subscribe()
	defer cancel()

	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("clearing write deadline failed", "error", err)
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				slog.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
