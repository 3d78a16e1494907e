package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamMessage struct {
	Snapshot  *SnapshotView      `json:"snapshot"`
	Deadlines deadline.Deadlines `json:"deadlines"`
}

// Stream upgrades to a websocket and pushes every accepted snapshot
// with its recomputed deadlines. The UI renders countdowns from the
// absolute deadline timestamps; the server never streams ticks.
func (h *TradeHandler) Stream(c *gin.Context) {
	controller, err := h.manager.Get(c.Param("tradeID"))
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "trade_id", c.Param("tradeID"), "error", err.Error())
		return
	}

	updates := make(chan streamMessage, 16)
	unsubscribe := controller.AddListener(func(snapshot *domain.TradeSnapshot, deadlines deadline.Deadlines) {
		select {
		case updates <- streamMessage{Snapshot: snapshotView(snapshot), Deadlines: deadlines}:
		default:
			// Slow consumer: drop intermediate updates, the next
			// accepted snapshot carries the full state anyway.
		}
	})

	// Current state immediately so the view renders without waiting
	// for the next update.
	if snapshot := controller.CurrentSnapshot(); snapshot != nil {
		updates <- streamMessage{Snapshot: snapshotView(snapshot), Deadlines: controller.Deadlines()}
	}

	go func() {
		defer unsubscribe()
		defer conn.Close()
		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()
		for {
			select {
			case message := <-updates:
				if err := conn.WriteJSON(message); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader goroutine only to detect close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()
}
