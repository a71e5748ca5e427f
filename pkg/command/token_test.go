package command

import (
	"errors"
	"math/rand"
	"testing"
)

func TestEncode_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		nonce   uint64
		opcode  uint64
		feature uint64
		want    Token
	}{
		{"first place tower", 1, 1, 0, 281474976710657},
		{"mint with feature", 2, 3, 1, 562949953421571},
		{"zero nonce drop/upgrade", 0, 4, 0, 4},
		{"all zero", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.nonce, tt.opcode, tt.feature)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode(%d, %d, %d) = %d, want %d", tt.nonce, tt.opcode, tt.feature, got, tt.want)
			}
		})
	}
}

func TestEncode_Boundaries(t *testing.T) {
	tests := []struct {
		name    string
		nonce   uint64
		opcode  uint64
		feature uint64
		wantErr error
		field   string
	}{
		{name: "max opcode", opcode: 255},
		{name: "opcode overflow", opcode: 256, wantErr: ErrOutOfRange, field: "opcode"},
		{name: "max feature", feature: 1<<40 - 1},
		{name: "feature overflow", feature: 1 << 40, wantErr: ErrOutOfRange, field: "feature"},
		{name: "max nonce", nonce: 1<<16 - 1},
		{name: "nonce overflow", nonce: 1 << 16, wantErr: ErrOutOfRange, field: "nonce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Encode(tt.nonce, tt.opcode, tt.feature)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				var fe *FieldError
				if !errors.As(err, &fe) || fe.Field != tt.field {
					t.Fatalf("expected FieldError for %q, got %#v", tt.field, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			f := Decode(tok)
			if f.Nonce != tt.nonce || uint64(f.Opcode) != tt.opcode || f.Feature != tt.feature {
				t.Errorf("round trip mismatch: got %+v", f)
			}
		})
	}
}

func TestEncodeInt_RejectsNegative(t *testing.T) {
	tests := []struct {
		name                   string
		nonce, opcode, feature int64
		field                  string
	}{
		{"negative nonce", -1, 1, 0, "nonce"},
		{"negative opcode", 1, -1, 0, "opcode"},
		{"negative feature", 1, 1, -5, "feature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeInt(tt.nonce, tt.opcode, tt.feature)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			var fe *FieldError
			if errors.As(err, &fe) && fe.Field != tt.field {
				t.Errorf("field = %q, want %q", fe.Field, tt.field)
			}
		})
	}

	if _, err := EncodeInt(1, 256, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for opcode 256, got %v", err)
	}
	tok, err := EncodeInt(2, 3, 1)
	if err != nil || tok != 562949953421571 {
		t.Errorf("EncodeInt(2, 3, 1) = %d, %v", tok, err)
	}
}

func TestEncode_RoundTripAndIsolation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		nonce := rng.Uint64() & MaxNonce
		opcode := rng.Uint64() & MaxOpcode
		feature := rng.Uint64() & MaxFeature

		tok, err := Encode(nonce, opcode, feature)
		if err != nil {
			t.Fatalf("Encode(%d, %d, %d): %v", nonce, opcode, feature, err)
		}

		f := tok.Fields()
		if f.Nonce != nonce || uint64(f.Opcode) != opcode || f.Feature != feature {
			t.Fatalf("round trip: in=(%d,%d,%d) out=%+v", nonce, opcode, feature, f)
		}

		// Меняем одно поле - остальные не должны сдвинуться
		otherNonce := (nonce + 1) & MaxNonce
		tok2, _ := Encode(otherNonce, opcode, feature)
		f2 := Decode(tok2)
		if f2.Opcode != f.Opcode || f2.Feature != f.Feature || f2.Nonce != otherNonce {
			t.Fatalf("nonce change leaked: %+v vs %+v", f, f2)
		}

		otherFeature := (feature + 1) & MaxFeature
		tok3, _ := Encode(nonce, opcode, otherFeature)
		f3 := Decode(tok3)
		if f3.Opcode != f.Opcode || f3.Nonce != f.Nonce || f3.Feature != otherFeature {
			t.Fatalf("feature change leaked: %+v vs %+v", f, f3)
		}

		otherOpcode := (opcode + 1) & MaxOpcode
		tok4, _ := Encode(nonce, otherOpcode, feature)
		f4 := Decode(tok4)
		if f4.Feature != f.Feature || f4.Nonce != f.Nonce || uint64(f4.Opcode) != otherOpcode {
			t.Fatalf("opcode change leaked: %+v vs %+v", f, f4)
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, errA := New(7, OpWithdrawTower, 12345)
	b, errB := New(7, OpWithdrawTower, 12345)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("same input produced %d and %d", a, b)
	}
}

func TestParseToken(t *testing.T) {
	tok, err := ParseToken("562949953421571")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Decode(tok); got != (Fields{Nonce: 2, Opcode: OpMintTower, Feature: 1}) {
		t.Errorf("Decode = %+v", got)
	}
	if tok.String() != "562949953421571" {
		t.Errorf("String() = %q", tok.String())
	}

	// 562949953421827 = (2<<48) + (2<<8) + 3, то есть feature = 2
	tok, err = ParseToken("562949953421827")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Decode(tok); got != (Fields{Nonce: 2, Opcode: OpMintTower, Feature: 2}) {
		t.Errorf("Decode = %+v", got)
	}

	for _, bad := range []string{"", "-1", "abc", "18446744073709551616"} {
		if _, err := ParseToken(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseToken(%q) = %v, want ErrInvalidArgument", bad, err)
		}
	}
}
