// Package mockserver - локальный двойник RPC-сервиса autocombat.
// Нужен для тестов клиента и для разработки без доступа к настоящему узлу.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Lolalalalo-o/autocombat/internal/auth"
	"github.com/Lolalalalo-o/autocombat/internal/version"
	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/command"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
	"github.com/Lolalalalo-o/autocombat/pkg/utils"
	"github.com/sirupsen/logrus"
)

type Server struct {
	World *World
	Hub   *Broadcaster

	// verifier nil - авторизация выключена
	verifier *auth.Verifier
}

func New(world *World, verifier *auth.Verifier) *Server {
	return &Server{
		World:    world,
		Hub:      NewBroadcaster(),
		verifier: verifier,
	}
}

// Handler собирает роутер. Используется и в Run, и в httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/query", enableCORS(withPayload(s.handleQuery)))
	mux.HandleFunc("/config", enableCORS(withPayload(s.handleConfig)))
	mux.HandleFunc("/send", enableCORS(withPayload(s.handleSend)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))
	mux.HandleFunc("/debug/accounts", enableCORS(s.handleAccounts))

	return mux
}

// Run запускает HTTP сервер и останавливает его при отмене ctx
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("autocombat mock RPC running on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		next(w, r)
	}
}

// authorize сверяет subject токена с pkey запроса
func (s *Server) authorize(r *http.Request, pkey string) error {
	if s.verifier == nil {
		return nil
	}
	account, err := s.verifier.VerifyRequest(r)
	if err != nil {
		return fmt.Errorf("%w: %v", errForbidden, err)
	}
	if account != pkey {
		return errForbidden
	}
	return nil
}

func (s *Server) handleQuery(r *http.Request, req api.QueryRequest) (api.Envelope, error) {
	if err := s.authorize(r, req.PKey); err != nil {
		return api.Envelope{}, err
	}

	st, err := s.World.Snapshot(req.PKey)
	if err != nil {
		return api.Envelope{}, err
	}
	text, err := json.Marshal(st)
	if err != nil {
		return api.Envelope{}, err
	}
	// data - строка с JSON внутри, как у настоящего сервиса
	data, err := json.Marshal(string(text))
	if err != nil {
		return api.Envelope{}, err
	}
	return api.Envelope{Data: data}, nil
}

// configDocument - то, что отдает /config
type configDocument struct {
	Version  string            `json:"version"`
	Monsters int               `json:"monsters"`
	Opcodes  map[string]uint8  `json:"opcodes"`
	Layout   map[string]uint64 `json:"layout"`
}

func (s *Server) handleConfig(r *http.Request, _ struct{}) (api.Envelope, error) {
	doc := configDocument{
		Version:  version.String(),
		Monsters: len(s.World.monsters),
		Opcodes: map[string]uint8{
			"PLACE_TOWER":    uint8(command.OpPlaceTower),
			"WITHDRAW_TOWER": uint8(command.OpWithdrawTower),
			"MINT_TOWER":     uint8(command.OpMintTower),
			"DROP_TOWER":     uint8(command.OpDropTower),
			"UPGRADE_TOWER":  uint8(command.OpUpgradeTower),
		},
		Layout: map[string]uint64{
			"opcode_bits":  command.OpcodeBits,
			"feature_bits": command.FeatureBits,
			"nonce_shift":  command.NonceShift,
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return api.Envelope{}, err
	}
	return api.Envelope{Data: data}, nil
}

func (s *Server) handleSend(r *http.Request, req api.TransactionRequest) (api.Envelope, error) {
	if err := s.authorize(r, req.PKey); err != nil {
		return api.Envelope{}, err
	}

	tok := command.Token(req.Params[0])
	log := logger.Log.WithFields(logrus.Fields{
		"component": "mock_send",
		"account":   req.PKey,
		"command":   command.Decode(tok).String(),
	})

	if err := s.World.Apply(req.PKey, tok); err != nil {
		log.WithError(err).Warn("transaction rejected")
		return api.Envelope{}, err
	}

	jobID := utils.GenerateID()
	log.WithField("jobid", jobID).Info("transaction accepted")

	tick := s.World.Tick()
	s.Hub.Broadcast(api.StateUpdate{
		Type: "TX",
		Tick: tick,
		Tx:   &api.TxNotice{JobID: jobID, Account: req.PKey, Command: tok.String()},
	})
	if st, err := s.World.Snapshot(req.PKey); err == nil {
		s.Hub.SendTo(req.PKey, api.StateUpdate{Type: "STATE", Tick: tick, State: st})
	}

	return api.Envelope{JobID: jobID}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, version.Info())
}

// /debug/accounts - все известные аккаунты с последним nonce
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.World.Accounts())
}
