package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatroom/internal/hub"
	"chatroom/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	maxFrameBytes = 64 << 10
	pongWait      = 60 * time.Second
	writeWait     = 10 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

type WebSocketHandler struct {
	Hub            *hub.Hub
	AllowedOrigins []string
	Logger         *slog.Logger

	upgrader *websocket.Upgrader
}

func NewWebSocketHandler(h *hub.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	ws := &WebSocketHandler{Hub: h, AllowedOrigins: allowedOrigins, Logger: logger}
	ws.upgrader = &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     ws.checkOrigin,
	}
	return ws
}

// checkOrigin accepts requests without an Origin header, same-host origins
// and the configured allow list.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Serve upgrades the request and relays frames between the socket and the
// hub until either side goes away. Must run behind RequireSession.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	log := logging.FromContext(c.Request.Context(), h.Logger)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := h.Hub.Connect()
	log = log.With("client_id", client.ID)
	log.Debug("websocket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(ws, client)
	}()

	h.readPump(ws, client)
	h.Hub.Disconnect(client.ID)
	<-done
	_ = ws.Close()
	log.Debug("websocket disconnected")
}

func (h *WebSocketHandler) readPump(ws *websocket.Conn, client *hub.Client) {
	ws.SetReadLimit(maxFrameBytes)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		h.Hub.Broadcast(client.ID, hub.Message{Binary: kind == websocket.BinaryMessage, Data: data})
	}
}

// writePump drains the client queue into the socket. A closed queue means the
// hub dropped the client; the peer gets a close frame. Closing the socket on
// a write error ends the read pump, which disconnects the client.
func writePump(ws *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Messages():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = ws.Close()
				return
			}
			kind := websocket.TextMessage
			if msg.Binary {
				kind = websocket.BinaryMessage
			}
			if err := ws.WriteMessage(kind, msg.Data); err != nil {
				_ = ws.Close()
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = ws.Close()
				return
			}
		}
	}
}
