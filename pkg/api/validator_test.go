package api

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseGameState(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantErr    bool
		wantPlayer bool
	}{
		{
			name:       "full state",
			input:      `{"player":{"inventory":["1","2"],"balance":10,"placed":1,"previous":0,"power":3},"global":{"monsters":[{"hp":5}],"towers":[],"counter":7}}`,
			wantPlayer: true,
		},
		{
			name:  "unknown player is null",
			input: `{"player":null,"global":{"monsters":[],"towers":[]}}`,
		},
		{name: "missing player", input: `{"global":{"monsters":[],"towers":[]}}`, wantErr: true},
		{name: "missing global", input: `{"player":null}`, wantErr: true},
		{name: "null global", input: `{"player":null,"global":null}`, wantErr: true},
		{name: "missing monsters", input: `{"player":null,"global":{"towers":[]}}`, wantErr: true},
		{name: "missing towers", input: `{"player":null,"global":{"monsters":[]}}`, wantErr: true},
		{name: "not an object", input: `[1,2,3]`, wantErr: true},
		{name: "garbage", input: `not json`, wantErr: true},
		{name: "wrong type", input: `{"player":{"balance":"x"},"global":{"monsters":[],"towers":[]}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := ParseGameState([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (st.Player != nil) != tt.wantPlayer {
				t.Errorf("player present = %v, want %v", st.Player != nil, tt.wantPlayer)
			}
		})
	}
}

func TestParseGameState_PlayerFields(t *testing.T) {
	st, err := ParseGameState([]byte(`{"player":{"inventory":["18446744073709551615", 3],"balance":10,"placed":1,"previous":2,"power":3},"global":{"monsters":[],"towers":[{"id":1}],"counter":9}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := st.Player
	if len(p.Inventory) != 2 || p.Inventory[0] != ^uint64(0) || p.Inventory[1] != 3 {
		t.Errorf("inventory = %v", p.Inventory)
	}
	if p.Balance != 10 || p.Placed != 1 || p.Previous != 2 || p.Power != 3 {
		t.Errorf("player = %+v", p)
	}
	if len(st.Global.Towers) != 1 || st.Global.Counter == nil || *st.Global.Counter != 9 {
		t.Errorf("global = %+v", st.Global)
	}
}

func TestU64Strings_Marshal(t *testing.T) {
	b, err := json.Marshal(TransactionRequest{PKey: "1234", Params: U64Strings{281474976710657, 0, 0, 0}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"pkey":"1234","params":["281474976710657","0","0","0"]}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestTransactionRequest_Validate(t *testing.T) {
	if err := (TransactionRequest{PKey: "a", Params: U64Strings{1, 0, 0, 0}}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (TransactionRequest{Params: U64Strings{1, 0, 0, 0}}).Validate(); err == nil {
		t.Error("expected error for empty pkey")
	}
	if err := (TransactionRequest{PKey: "a", Params: U64Strings{1}}).Validate(); err == nil {
		t.Error("expected error for short params")
	}
	if err := (QueryRequest{}).Validate(); err == nil {
		t.Error("expected error for empty query pkey")
	}
}
