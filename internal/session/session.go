// Package session связывает аккаунт, RPC-клиент и учет nonce в один явный объект.
// Глобального состояния нет: сессию создает и закрывает вызывающий код.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/command"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
	"github.com/sirupsen/logrus"
)

var ErrNonceExhausted = errors.New("nonce space exhausted")

// Remote - то, что сессии нужно от RPC-клиента. *rpc.Client подходит.
type Remote interface {
	QueryState(ctx context.Context, account string) (*api.GameState, error)
	QueryConfig(ctx context.Context) (json.RawMessage, error)
	SendTransaction(ctx context.Context, params [4]uint64, account string) (string, error)
}

// Journal - постоянное хранилище отправленных команд. Может отсутствовать.
type Journal interface {
	Append(account string, tok command.Token) error
	LastNonce(account string) (uint64, bool)
}

// Receipt - результат отправки команды
type Receipt struct {
	Token  command.Token  `json:"token"`
	Fields command.Fields `json:"fields"`
	JobID  string         `json:"jobid"`
}

type Session struct {
	account string
	remote  Remote
	journal Journal

	mu        sync.Mutex
	nextNonce uint64

	log *logrus.Entry
}

type Option func(*Session)

// WithJournal подключает журнал: следующий nonce продолжает записанные.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithStartNonce задает первый nonce явно.
func WithStartNonce(n uint64) Option {
	return func(s *Session) { s.nextNonce = n }
}

func New(account string, remote Remote, opts ...Option) (*Session, error) {
	if account == "" {
		return nil, fmt.Errorf("session: %w: empty account", command.ErrInvalidArgument)
	}
	if remote == nil {
		return nil, errors.New("session: nil remote")
	}

	s := &Session{
		account: account,
		remote:  remote,
		log: logger.Log.WithFields(logrus.Fields{
			"component": "session",
			"account":   account,
		}),
	}
	for _, o := range opts {
		o(s)
	}

	if s.journal != nil {
		if last, ok := s.journal.LastNonce(account); ok && last+1 > s.nextNonce {
			s.nextNonce = last + 1
			s.log.WithField("nonce", s.nextNonce).Debug("nonce resumed from journal")
		}
	}
	return s, nil
}

func (s *Session) Account() string { return s.account }

// State - состояние приложения для аккаунта сессии
func (s *Session) State(ctx context.Context) (*api.GameState, error) {
	return s.remote.QueryState(ctx, s.account)
}

// Config - документ конфигурации сервиса
func (s *Session) Config(ctx context.Context) (json.RawMessage, error) {
	return s.remote.QueryConfig(ctx)
}

// NextNonce - nonce, который получит следующая команда
func (s *Session) NextNonce() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextNonce
}

// Submit кодирует команду со следующим nonce и отправляет ее.
// Nonce расходуется только если команда прошла валидацию кодировщика:
// ошибки сети его не возвращают, так как сервер мог команду принять.
func (s *Session) Submit(ctx context.Context, op command.Opcode, feature uint64) (*Receipt, error) {
	s.mu.Lock()
	nonce := s.nextNonce
	if nonce > command.MaxNonce {
		s.mu.Unlock()
		return nil, ErrNonceExhausted
	}
	tok, err := command.New(nonce, op, feature)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.nextNonce++
	s.mu.Unlock()

	if op.IsAmbiguous() {
		s.log.WithField("opcode", op.String()).Warn("opcode value is shared by several commands")
	}

	return s.SubmitToken(ctx, tok)
}

// SubmitToken отправляет уже собранный токен (три вспомогательных поля - нули).
// Токен попадает в журнал до отправки: nonce считается израсходованным
// и после перезапуска, даже если ответа от сервиса не было.
func (s *Session) SubmitToken(ctx context.Context, tok command.Token) (*Receipt, error) {
	fields := command.Decode(tok)
	log := s.log.WithFields(logrus.Fields{
		"nonce":   fields.Nonce,
		"opcode":  fields.Opcode.String(),
		"feature": fields.Feature,
	})

	if s.journal != nil {
		if err := s.journal.Append(s.account, tok); err != nil {
			log.WithError(err).Error("failed to journal command, not sending")
			return nil, fmt.Errorf("journal command: %w", err)
		}
	}

	// Явно заданный nonce двигает счетчик вперед, но никогда назад
	s.mu.Lock()
	if fields.Nonce >= s.nextNonce {
		s.nextNonce = fields.Nonce + 1
	}
	s.mu.Unlock()

	jobID, err := s.remote.SendTransaction(ctx, [4]uint64{uint64(tok), 0, 0, 0}, s.account)
	if err != nil {
		log.WithError(err).Warn("transaction rejected")
		return nil, err
	}

	log.WithField("jobid", jobID).Info("transaction sent")
	return &Receipt{Token: tok, Fields: fields, JobID: jobID}, nil
}
