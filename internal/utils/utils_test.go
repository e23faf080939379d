package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "HOST", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"].(float64) != 42 || claims["role"] != "HOST" {
		t.Fatalf("claims = %v", claims)
	}
	if !tok.Exp.After(time.Now()) {
		t.Fatalf("expiry %v is in the past", tok.Exp)
	}
}

func TestCheckinCode(t *testing.T) {
	code, err := NewCheckinCode(6)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 6 || strings.Trim(code, checkinAlphabet) != "" {
		t.Fatalf("code %q has unexpected characters", code)
	}
	hash, err := HashCheckinCode(code, bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyCheckinCode(hash, " "+strings.ToLower(code)+" ") {
		t.Fatal("code should verify case-insensitively")
	}
	if VerifyCheckinCode(hash, "WRONG1") {
		t.Fatal("wrong code verified")
	}
}

func TestRunWithTimeout(t *testing.T) {
	if err := RunWithTimeout(context.Background(), time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("fast fn: %v", err)
	}
	boom := errors.New("boom")
	if err := RunWithTimeout(context.Background(), time.Second, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("err = %v, want timeout", err)
	}
}
