package mockserver

import (
	"net/http"
	"time"

	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
	"github.com/Lolalalalo-o/autocombat/pkg/utils"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feedClient - посредник между Websocket и Broadcaster.
// Фид односторонний: от клиента ждем только close и pong.
type feedClient struct {
	ID      string
	Account string
	Conn    *websocket.Conn
	Send    chan api.StateUpdate
	hub     *Broadcaster
	log     *logrus.Entry
}

// handleWS обрабатывает подключение по WebSocket
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	pkey := r.URL.Query().Get("pkey")
	if pkey == "" {
		http.Error(w, "pkey is required", http.StatusBadRequest)
		return
	}
	if err := s.authorize(r, pkey); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Error("websocket upgrade failed")
		return
	}

	c := &feedClient{
		ID:      utils.GenerateID(),
		Account: pkey,
		Conn:    conn,
		hub:     s.Hub,
		log: logger.Log.WithFields(logrus.Fields{
			"component": "mock_ws",
			"account":   pkey,
		}),
	}
	c.Send = s.Hub.Register(c.ID, pkey)
	c.log.Info("feed subscriber connected")

	// Первый кадр - текущее состояние, только этому подписчику
	if st, err := s.World.Snapshot(pkey); err == nil {
		select {
		case c.Send <- api.StateUpdate{Type: "STATE", Tick: s.World.Tick(), State: st}:
		default:
			c.log.Warn("initial state frame dropped")
		}
	}

	// Запускаем пампы
	go c.writePump()
	go c.readPump()
}

// readPump нужен только чтобы заметить закрытие и обработать pong
func (c *feedClient) readPump() {
	defer func() {
		c.hub.Unregister(c.ID)
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
		c.log.Info("feed subscriber disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

// writePump отправляет данные клиенту + Ping
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				c.log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
