package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lolalalalo-o/autocombat/internal/version"
	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
	"github.com/gorilla/websocket"
)

// Настройки WebSocket
const (
	pongWait   = 60 * time.Second
	dialWait   = 10 * time.Second
	maxMsgSize = 1 << 20
)

// Watch подписывается на фид обновлений состояния и вызывает handle на каждый кадр.
// Блокируется до отмены ctx или закрытия соединения сервером.
// Отмена ctx - штатное завершение, ошибка не возвращается.
func (c *Client) Watch(ctx context.Context, account string, handle func(api.StateUpdate)) error {
	wsURL, err := c.watchURL(account)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if c.creds != nil {
		tok, err := c.creds.Issue(account)
		if err != nil {
			return fmt.Errorf("%s: %w", RouteWatch, err)
		}
		header.Set("Authorization", "Bearer "+tok)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialWait}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return &HTTPError{Route: RouteWatch, Status: resp.StatusCode, Body: err.Error()}
		}
		return fmt.Errorf("%s: %w", RouteWatch, err)
	}

	log := logger.Log.WithField("component", "rpc_watch")
	log.WithField("account", account).Info("subscribed to state feed")

	// Закрываем соединение при отмене контекста - это разблокирует ReadJSON
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	// Сервер шлет ping, дефолтный обработчик отвечает pong, мы продлеваем дедлайн
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		var upd api.StateUpdate
		if err := conn.ReadJSON(&upd); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("state feed closed by server")
				return nil
			}
			return fmt.Errorf("%s: %w", RouteWatch, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(upd)
	}
}

func (c *Client) watchURL(account string) (string, error) {
	u, err := url.Parse(c.baseURL + RouteWatch)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("pkey", account)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
