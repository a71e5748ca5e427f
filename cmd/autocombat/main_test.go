package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lolalalalo-o/autocombat/internal/mockserver"
	"github.com/Lolalalalo-o/autocombat/pkg/command"
)

func TestRun_EncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"encode place", []string{"encode", "-nonce", "1", "-op", "PLACE_TOWER"}, "281474976710657\n"},
		{"encode mint", []string{"encode", "-nonce", "2", "-op", "mint_tower", "-feature", "1"}, "562949953421571\n"},
		{"decode", []string{"decode", "562949953421571"}, "nonce=2 op=MINT_TOWER feature=1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, &out); err != nil {
				t.Fatalf("run: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRun_DecodeAmbiguous(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"decode", "4"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "DROP_TOWER, UPGRADE_TOWER") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_EncodeErrors(t *testing.T) {
	world := mockserver.NewWorld(1)
	srv := httptest.NewServer(mockserver.New(world, nil).Handler())
	defer srv.Close()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"negative nonce", []string{"encode", "-nonce", "-1", "-op", "1"}, command.ErrInvalidArgument},
		{"opcode too wide", []string{"encode", "-op", "256"}, command.ErrOutOfRange},
		{"feature too wide", []string{"encode", "-op", "1", "-feature", "1099511627776"}, command.ErrOutOfRange},
		{"bad token", []string{"decode", "abc"}, command.ErrInvalidArgument},
		{"send negative nonce", []string{"-endpoint", srv.URL, "-account", "1234", "send", "-op", "PLACE_TOWER", "-nonce", "-5"}, command.ErrInvalidArgument},
		{"send negative feature", []string{"-endpoint", srv.URL, "-account", "1234", "send", "-op", "PLACE_TOWER", "-feature", "-1"}, command.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, &out); !errors.Is(err, tt.wantErr) {
				t.Errorf("run = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Отклоненные команды до сервиса не доходят
	if accs := world.Accounts(); len(accs) != 0 {
		t.Errorf("mock saw transactions: %+v", accs)
	}
}

func TestRun_StateAndSend(t *testing.T) {
	srv := httptest.NewServer(mockserver.New(mockserver.NewWorld(1), nil).Handler())
	defer srv.Close()

	journalPath := filepath.Join(t.TempDir(), "journal.bin")
	base := []string{"-endpoint", srv.URL, "-account", "1234", "-journal", journalPath}
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, append(base, "send", "-op", "PLACE_TOWER", "-feature", "3"), &out); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out.String(), `"jobid"`) {
		t.Errorf("send output = %s", out.String())
	}

	// Второй запуск продолжает nonce из журнала: повтора nonce 0 нет
	out.Reset()
	if err := run(ctx, append(base, "send", "-op", "MINT_TOWER", "-feature", "8"), &out); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if !strings.Contains(out.String(), `"nonce": 1`) {
		t.Errorf("second send output = %s", out.String())
	}

	out.Reset()
	if err := run(ctx, append(base, "state"), &out); err != nil {
		t.Fatalf("state: %v", err)
	}
	got := out.String()
	for _, want := range []string{"player info:", "monsters info:", "towers info:", "config {", `"placed": 1`} {
		if !strings.Contains(got, want) {
			t.Errorf("state output missing %q:\n%s", want, got)
		}
	}
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out); err == nil {
		t.Error("expected error without a command")
	}
	if !strings.Contains(out.String(), "usage: autocombat") {
		t.Errorf("usage not printed: %q", out.String())
	}
}
