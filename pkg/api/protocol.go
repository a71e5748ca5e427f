package api

import (
	"encoding/json"
	"strconv"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// Envelope это корневой объект любого ответа RPC-сервиса.
// Data для /query - это JSON-ТЕКСТ (строка), для /config - обычный JSON-объект.
type Envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	JobID   string          `json:"jobid,omitempty"`
}

// GameState это разобранное содержимое /query.
type GameState struct {
	// Player данные аккаунта. nil, если сервер еще не знает этот аккаунт
	// (в JSON приходит null), но само поле обязано присутствовать.
	Player *PlayerData `json:"player"`

	// Global общее состояние мира.
	Global GlobalState `json:"global"`
}

// GlobalState общая для всех игроков часть состояния.
// Монстры и башни не интерпретируются клиентом, поэтому хранятся как есть.
type GlobalState struct {
	Monsters []json.RawMessage `json:"monsters"`
	Towers   []json.RawMessage `json:"towers"`

	// Counter глобальный тик, если сервер его присылает.
	Counter *uint64 `json:"counter,omitempty"`
}

// PlayerData повторяет раскладку данных игрока на сервере.
type PlayerData struct {
	// Inventory id башен в инвентаре. u64 на проводе сериализуются строками.
	Inventory U64Strings `json:"inventory"`
	Balance   uint64     `json:"balance"`
	Placed    uint64     `json:"placed"`
	Previous  uint64     `json:"previous"`
	Power     uint64     `json:"power"`
}

// StateUpdate - кадр, который websocket-фид рассылает подписчикам.
type StateUpdate struct {
	// Type тип сообщения: "STATE" или "TX".
	Type  string     `json:"type"`
	Tick  uint64     `json:"tick"`
	State *GameState `json:"state,omitempty"`
	// Tx заполняется для Type == "TX".
	Tx *TxNotice `json:"tx,omitempty"`
}

// TxNotice коротко описывает принятую сервером транзакцию.
type TxNotice struct {
	JobID   string `json:"jobid"`
	Account string `json:"pkey"`
	Command string `json:"command"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// QueryRequest тело для /query и /ws.
type QueryRequest struct {
	PKey string `json:"pkey"`
}

// TransactionRequest тело для /send.
type TransactionRequest struct {
	PKey string `json:"pkey"`
	// Params ровно 4 u64: токен команды и три вспомогательных поля.
	Params U64Strings `json:"params"`
}

// --- Общие типы ---

// U64Strings - массив u64, который на проводе выглядит как массив десятичных строк.
// JavaScript-клиенты иначе теряют точность выше 2^53.
type U64Strings []uint64

func (u U64Strings) MarshalJSON() ([]byte, error) {
	out := make([]string, len(u))
	for i, v := range u {
		out[i] = strconv.FormatUint(v, 10)
	}
	return json.Marshal(out)
}

// UnmarshalJSON принимает как строки, так и обычные числа.
func (u *U64Strings) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	res := make(U64Strings, len(raw))
	for i, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			s = string(r)
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		res[i] = v
	}
	*u = res
	return nil
}
