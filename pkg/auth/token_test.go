package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "tapline-test",
		ExpirationMinutes: 30,
	}
}

func TestSignAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	terminalID := uuid.New()
	venueID := uuid.New()

	raw, err := SignTerminalToken(cfg, terminalID, venueID, "terminal")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseTerminalToken(cfg, raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TerminalID != terminalID {
		t.Fatalf("terminal id mismatch: %s", claims.TerminalID)
	}
	if claims.VenueID != venueID {
		t.Fatalf("venue id mismatch: %s", claims.VenueID)
	}
	if claims.Role != "terminal" {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := SignTerminalToken(config.JWTConfig{
		Secret:            cfg.Secret,
		Issuer:            "someone-else",
		ExpirationMinutes: 30,
	}, uuid.New(), uuid.New(), "terminal")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseTerminalToken(cfg, raw); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	claims := TerminalClaims{
		TerminalID: uuid.New(),
		VenueID:    uuid.New(),
		Role:       "terminal",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseTerminalToken(cfg, raw); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseRejectsMissingTerminalID(t *testing.T) {
	cfg := testJWTConfig()
	claims := TerminalClaims{
		VenueID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseTerminalToken(cfg, raw); err == nil {
		t.Fatal("expected missing terminal id error")
	}
}
