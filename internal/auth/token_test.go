package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueVerify(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ver, err := NewVerifier("s3cret")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	tok, err := iss.Issue("1234")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	account, err := ver.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if account != "1234" {
		t.Errorf("account = %q, want 1234", account)
	}
}

func TestVerify_Rejects(t *testing.T) {
	iss, _ := NewIssuer("s3cret", time.Hour)
	other, _ := NewIssuer("other", time.Hour)
	ver, _ := NewVerifier("s3cret")

	expired, _ := NewIssuer("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	good, _ := iss.Issue("1234")
	wrongKey, _ := other.Issue("1234")
	old, _ := expired.Issue("1234")

	tests := []struct {
		name  string
		token string
	}{
		{"wrong key", wrongKey},
		{"expired", old},
		{"garbage", "not.a.jwt"},
		{"tampered", good + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ver.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestVerifyRequest(t *testing.T) {
	iss, _ := NewIssuer("k", time.Minute)
	ver, _ := NewVerifier("k")
	tok, _ := iss.Issue("acc")

	r := httptest.NewRequest("POST", "/query", nil)
	if _, err := ver.VerifyRequest(r); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}

	r.Header.Set("Authorization", "Basic abc")
	if _, err := ver.VerifyRequest(r); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken for non-bearer, got %v", err)
	}

	r.Header.Set("Authorization", "Bearer "+tok)
	account, err := ver.VerifyRequest(r)
	if err != nil || account != "acc" {
		t.Errorf("VerifyRequest = %q, %v", account, err)
	}
}

func TestEmptySecret(t *testing.T) {
	if _, err := NewIssuer("", time.Minute); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("issuer: %v", err)
	}
	if _, err := NewVerifier(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("verifier: %v", err)
	}
	iss, _ := NewIssuer("k", time.Minute)
	if _, err := iss.Issue(""); err == nil {
		t.Error("expected error for empty account")
	}
}
