package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsEvent struct {
	Type  string `json:"type"`
	Table string `json:"table"`
	Data  any    `json:"data"`
}

// ServeWS upgrades an authenticated client and streams its change events.
// Optional ?tables=messages,notifications narrows the subscription. The
// subscription lives until the client disconnects.
func ServeWS(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var tables []string
	if q := c.QueryParam("tables"); q != "" {
		for _, t := range strings.Split(q, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	// Callbacks fire on publisher goroutines; serialize conn writes.
	var writeMu sync.Mutex
	send := func(change Change) {
		payload, err := json.Marshal(wsEvent{
			Type:  string(change.Kind),
			Table: change.Table,
			Data:  change.Payload,
		})
		if err != nil {
			return
		}
		writeMu.Lock()
		_ = ws.WriteMessage(websocket.TextMessage, payload)
		writeMu.Unlock()
	}

	sub := Default.Subscribe(userID, tables, send, send)

	// Read loop: protocol is server push; client frames only signal liveness.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	sub.Close()
	_ = ws.Close()
	return nil
}
