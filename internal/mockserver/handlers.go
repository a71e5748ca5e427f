package mockserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Lolalalalo-o/autocombat/pkg/api"
)

const maxRequestSize = 64 << 10

var errForbidden = errors.New("token does not match pkey")

// TypedHandlerFunc - "чистый" хендлер, который работает с готовой структурой T
type TypedHandlerFunc[T any] func(r *http.Request, payload T) (api.Envelope, error)

// withPayload берет на себя чтение тела, Unmarshal и Validate,
// а ошибки превращает в конверт success=false.
func withPayload[T any](handler TypedHandlerFunc[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeEnvelope(w, http.StatusMethodNotAllowed, api.Envelope{Error: "method not allowed"})
			return
		}

		var payload T

		// 1. Распаковка JSON
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, api.Envelope{Error: err.Error()})
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				writeEnvelope(w, http.StatusBadRequest, api.Envelope{Error: fmt.Sprintf("invalid payload format: %v", err)})
				return
			}
		}

		// 2. Автоматическая валидация
		if v, ok := any(payload).(api.Validator); ok {
			if err := v.Validate(); err != nil {
				writeEnvelope(w, http.StatusBadRequest, api.Envelope{Error: fmt.Sprintf("validation failed: %v", err)})
				return
			}
		}

		// 3. Вызов логики
		env, err := handler(r, payload)
		if err != nil {
			status := http.StatusOK
			if errors.Is(err, errForbidden) {
				status = http.StatusForbidden
			}
			writeEnvelope(w, status, api.Envelope{Error: err.Error()})
			return
		}
		env.Success = true
		writeEnvelope(w, http.StatusOK, env)
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	// Если data == nil, возвращаем пустой массив [], а не null
	if data == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}

	_ = json.NewEncoder(w).Encode(data)
}
