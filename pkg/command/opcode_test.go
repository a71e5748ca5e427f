package command

import (
	"errors"
	"testing"
)

func TestParseOpcode(t *testing.T) {
	tests := []struct {
		input    string
		expected Opcode
		wantErr  error
	}{
		{input: "PLACE_TOWER", expected: OpPlaceTower},
		{input: "place_tower", expected: OpPlaceTower},
		{input: "Withdraw_Tower", expected: OpWithdrawTower},
		{input: "MINT_TOWER", expected: OpMintTower},
		{input: "DROP_TOWER", expected: OpDropTower},
		{input: "UPGRADE_TOWER", expected: OpUpgradeTower},
		{input: " 3 ", expected: OpMintTower},
		{input: "255", expected: Opcode(255)},
		{input: "256", wantErr: ErrOutOfRange},
		{input: "-1", wantErr: ErrInvalidArgument},
		{input: "SELL_TOWER", wantErr: ErrInvalidArgument},
		{input: "", wantErr: ErrInvalidArgument},
	}

	for _, tt := range tests {
		got, err := ParseOpcode(tt.input)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseOpcode(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOpcode(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseOpcode(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestOpcode_DropUpgradeAmbiguity(t *testing.T) {
	if OpDropTower != OpUpgradeTower {
		t.Fatalf("DROP_TOWER and UPGRADE_TOWER are expected to share value 4")
	}
	if !OpDropTower.IsAmbiguous() {
		t.Errorf("opcode 4 should be reported as ambiguous")
	}
	if OpPlaceTower.IsAmbiguous() {
		t.Errorf("opcode 1 should not be ambiguous")
	}

	names := Opcode(4).Names()
	if len(names) != 2 || names[0] != "DROP_TOWER" || names[1] != "UPGRADE_TOWER" {
		t.Errorf("Names() = %v", names)
	}

	tok, err := New(0, OpUpgradeTower, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != 4 {
		t.Errorf("token = %d, want 4", tok)
	}
	if got := Decode(tok).Opcode.String(); got != "DROP_TOWER|UPGRADE_TOWER" {
		t.Errorf("decoded opcode = %q", got)
	}
}

func TestOpcode_String(t *testing.T) {
	tests := []struct {
		op       Opcode
		expected string
	}{
		{OpPlaceTower, "PLACE_TOWER"},
		{OpWithdrawTower, "WITHDRAW_TOWER"},
		{OpMintTower, "MINT_TOWER"},
		{OpUnknown, "UNKNOWN(0)"},
		{Opcode(200), "UNKNOWN(200)"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.expected {
			t.Errorf("Opcode(%d).String() = %q, want %q", uint8(tt.op), got, tt.expected)
		}
	}
}
