package main

import (
	"fmt"
	"strings"
	"testing"

	"pay-watch.backend/pkg/jwt"
)

func withTokenHooks(t *testing.T) {
	t.Helper()
	origLoadDotenv := loadDotenv
	origPrintf := printfFn

	loadDotenv = func(...string) error { return nil }
	t.Cleanup(func() {
		loadDotenv = origLoadDotenv
		printfFn = origPrintf
	})
}

func TestRun_EmptyService(t *testing.T) {
	withTokenHooks(t)

	if err := run(""); err == nil {
		t.Fatal("expected error for empty service name")
	}
}

func TestRun_MintedTokenValidates(t *testing.T) {
	withTokenHooks(t)
	t.Setenv("WEBHOOK_JWT_SECRET", "token-gen-test-secret")
	t.Setenv("WEBHOOK_TOKEN_EXPIRY", "5m")

	var token string
	printfFn = func(format string, a ...interface{}) (int, error) {
		line := fmt.Sprintf(format, a...)
		if strings.HasPrefix(line, "TOKEN=") {
			token = strings.TrimSpace(strings.TrimPrefix(line, "TOKEN="))
		}
		return len(line), nil
	}

	if err := run("verifier"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected token in output")
	}

	claims, err := jwt.NewJWTService("token-gen-test-secret", 0).ValidateToken(token)
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if claims.Service != "verifier" {
		t.Fatalf("unexpected service claim: %s", claims.Service)
	}
}
