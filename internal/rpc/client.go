// Package rpc - HTTP/JSON клиент удаленного сервиса autocombat.
//
// Сервис отвечает конвертом api.Envelope. Для /query поле data содержит
// JSON-текст состояния, который разбирается вторым шагом в api.GameState.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lolalalalo-o/autocombat/internal/version"
	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	RouteQuery  = "/query"
	RouteConfig = "/config"
	RouteSend   = "/send"
	RouteWatch  = "/ws"

	maxResponseSize = 4 << 20
)

// Credentials выпускает bearer-токен для аккаунта. auth.Issuer подходит.
type Credentials interface {
	Issue(account string) (string, error)
}

// Client не хранит аккаунт: он передается в каждый вызов.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	creds   Credentials
}

type Option func(*Client)

const defaultTimeout = 10 * time.Second

// WithHTTPClient подменяет http.Client (тесты, прокси). Переданный клиент
// не меняется: таймаут применяется к его копии.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout задает таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
	}
	for _, o := range opts {
		o(c)
	}

	switch {
	case c.http == nil:
		if c.timeout <= 0 {
			c.timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: c.timeout}
	case c.timeout > 0:
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	default:
		c.timeout = c.http.Timeout
	}
	return c
}

// BaseURL - адрес сервиса без завершающего слеша.
func (c *Client) BaseURL() string { return c.baseURL }

// QueryState запрашивает состояние приложения для аккаунта.
func (c *Client) QueryState(ctx context.Context, account string) (*api.GameState, error) {
	env, err := c.post(ctx, RouteQuery, account, api.QueryRequest{PKey: account})
	if err != nil {
		return nil, err
	}

	// data - строка с JSON внутри
	var text string
	if err := json.Unmarshal(env.Data, &text); err != nil {
		return nil, fmt.Errorf("%s: %w: data is not a JSON string", RouteQuery, api.ErrMalformedResponse)
	}

	state, err := api.ParseGameState([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", RouteQuery, err)
	}
	return state, nil
}

// QueryConfig возвращает документ конфигурации как есть.
// Клиент его не интерпретирует.
func (c *Client) QueryConfig(ctx context.Context) (json.RawMessage, error) {
	env, err := c.post(ctx, RouteConfig, "", nil)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%s: %w: missing data", RouteConfig, api.ErrMalformedResponse)
	}
	return env.Data, nil
}

// SendTransaction отправляет 4 параметра транзакции от имени аккаунта.
// Возвращает идентификатор задачи на сервере.
func (c *Client) SendTransaction(ctx context.Context, params [4]uint64, account string) (string, error) {
	req := api.TransactionRequest{PKey: account, Params: api.U64Strings(params[:])}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", RouteSend, err)
	}

	env, err := c.post(ctx, RouteSend, account, req)
	if err != nil {
		return "", err
	}
	return env.JobID, nil
}

func (c *Client) post(ctx context.Context, route, account string, body interface{}) (*api.Envelope, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"component": "rpc_client",
		"route":     route,
	})

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", route, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if err := c.authorize(req, account); err != nil {
		return nil, fmt.Errorf("%s: %w", route, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", route, err)
	}

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("rpc call")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{Route: route, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var env api.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", route, api.ErrMalformedResponse, err)
	}
	if !env.Success {
		return nil, &RemoteError{Route: route, Message: env.Error}
	}
	return &env, nil
}

// authorize ставит bearer-токен. Без аккаунта (config) токен не нужен.
func (c *Client) authorize(req *http.Request, account string) error {
	if c.creds == nil || account == "" {
		return nil
	}
	tok, err := c.creds.Issue(account)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}
