package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse - ответ сервера не соответствует ожидаемой схеме.
var ErrMalformedResponse = errors.New("malformed response")

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (r QueryRequest) Validate() error {
	if r.PKey == "" {
		return errors.New("pkey is required")
	}
	return nil
}

func (r TransactionRequest) Validate() error {
	if r.PKey == "" {
		return errors.New("pkey is required")
	}
	if len(r.Params) != 4 {
		return fmt.Errorf("params must have 4 elements, got %d", len(r.Params))
	}
	return nil
}

// ParseGameState разбирает JSON-текст состояния и проверяет обязательные поля.
// Отсутствие player, global, global.monsters или global.towers - ErrMalformedResponse.
func ParseGameState(text []byte) (*GameState, error) {
	// Сначала смотрим на сырые ключи: encoding/json не отличает
	// отсутствующее поле от null.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(text, &top); err != nil {
		return nil, fmt.Errorf("%w: state is not a JSON object: %v", ErrMalformedResponse, err)
	}
	if _, ok := top["player"]; !ok {
		return nil, fmt.Errorf("%w: missing field player", ErrMalformedResponse)
	}
	globalRaw, ok := top["global"]
	if !ok || isNull(globalRaw) {
		return nil, fmt.Errorf("%w: missing field global", ErrMalformedResponse)
	}

	var global map[string]json.RawMessage
	if err := json.Unmarshal(globalRaw, &global); err != nil {
		return nil, fmt.Errorf("%w: global is not an object: %v", ErrMalformedResponse, err)
	}
	for _, key := range []string{"monsters", "towers"} {
		v, ok := global[key]
		if !ok || isNull(v) {
			return nil, fmt.Errorf("%w: missing field global.%s", ErrMalformedResponse, key)
		}
	}

	var st GameState
	if err := json.Unmarshal(text, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &st, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
