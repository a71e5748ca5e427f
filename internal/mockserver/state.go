package mockserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Lolalalalo-o/autocombat/pkg/api"
	"github.com/Lolalalalo-o/autocombat/pkg/command"
)

var (
	ErrReplay         = errors.New("nonce already used")
	ErrUnknownCommand = errors.New("unknown command")
	ErrTowerNotFound  = errors.New("tower not found")
	ErrAmbiguous      = errors.New("ambiguous command")
)

// Monster - упрощенный монстр мока
type Monster struct {
	ID  uint64 `json:"id"`
	HP  uint64 `json:"hp"`
	Pos uint64 `json:"pos"`
}

// Tower - башня на поле
type Tower struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
}

type account struct {
	player    api.PlayerData
	lastNonce uint64
	seen      bool
}

// World - все состояние мока. Семантика намеренно минимальная:
// настоящий сервис сам решает, что значат команды.
type World struct {
	mu       sync.RWMutex
	accounts map[string]*account
	monsters []Monster
	towers   []Tower
	counter  uint64
}

func NewWorld(monsters int) *World {
	w := &World{accounts: make(map[string]*account)}
	for i := 0; i < monsters; i++ {
		w.monsters = append(w.monsters, Monster{ID: uint64(i), HP: 100, Pos: uint64(i * 10)})
	}
	return w
}

// Apply проверяет nonce и применяет команду. Nonce аккаунта обязан строго расти.
func (w *World) Apply(acc string, tok command.Token) error {
	f := command.Decode(tok)

	w.mu.Lock()
	defer w.mu.Unlock()

	a := w.accounts[acc]
	if a == nil {
		a = &account{}
	}
	if a.seen && f.Nonce <= a.lastNonce {
		return fmt.Errorf("%w: nonce %d, last %d", ErrReplay, f.Nonce, a.lastNonce)
	}

	switch f.Opcode {
	case command.OpPlaceTower:
		w.towers = append(w.towers, Tower{ID: f.Feature, Owner: acc})
		a.player.Placed++
	case command.OpWithdrawTower:
		idx := -1
		for i, t := range w.towers {
			if t.ID == f.Feature && t.Owner == acc {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrTowerNotFound, f.Feature)
		}
		w.towers = append(w.towers[:idx], w.towers[idx+1:]...)
		if a.player.Placed > 0 {
			a.player.Placed--
		}
	case command.OpMintTower:
		a.player.Inventory = append(a.player.Inventory, f.Feature)
	case command.OpDropTower:
		// DROP_TOWER и UPGRADE_TOWER делят значение 4 - мок не угадывает
		return fmt.Errorf("%w: %s", ErrAmbiguous, f.Opcode)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, uint8(f.Opcode))
	}

	a.seen = true
	a.lastNonce = f.Nonce
	a.player.Previous = uint64(tok)
	w.accounts[acc] = a
	w.counter++
	return nil
}

// Snapshot собирает состояние так, как его видит аккаунт.
func (w *World) Snapshot(acc string) (*api.GameState, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	st := &api.GameState{}
	if a, ok := w.accounts[acc]; ok {
		p := a.player
		p.Inventory = append(api.U64Strings{}, a.player.Inventory...)
		st.Player = &p
	}

	counter := w.counter
	st.Global.Counter = &counter
	st.Global.Monsters = make([]json.RawMessage, 0, len(w.monsters))
	for _, m := range w.monsters {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		st.Global.Monsters = append(st.Global.Monsters, b)
	}
	st.Global.Towers = make([]json.RawMessage, 0, len(w.towers))
	for _, t := range w.towers {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		st.Global.Towers = append(st.Global.Towers, b)
	}
	return st, nil
}

// Tick - глобальный счетчик принятых команд
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counter
}

// AccountSummary - для /debug/accounts
type AccountSummary struct {
	Account   string         `json:"account"`
	LastNonce uint64         `json:"last_nonce"`
	Player    api.PlayerData `json:"player"`
}

func (w *World) Accounts() []AccountSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]AccountSummary, 0, len(w.accounts))
	for id, a := range w.accounts {
		out = append(out, AccountSummary{Account: id, LastNonce: a.lastNonce, Player: a.player})
	}
	return out
}
