package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/config"
)

// TerminalClaims identify a venue-issued terminal token. Terminals are
// the only principals in this core; there are no user accounts.
type TerminalClaims struct {
	TerminalID uuid.UUID `json:"tid"`
	VenueID    uuid.UUID `json:"vid"`
	Role       string    `json:"role"`
	jwt.RegisteredClaims
}

// SignTerminalToken mints a token for a terminal. Used by provisioning
// tooling and tests.
func SignTerminalToken(cfg config.JWTConfig, terminalID, venueID uuid.UUID, role string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	now := time.Now().UTC()
	claims := TerminalClaims{
		TerminalID: terminalID,
		VenueID:    venueID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   terminalID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseTerminalToken validates the signature, issuer and expiry and
// returns the terminal claims.
func ParseTerminalToken(cfg config.JWTConfig, raw string) (*TerminalClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &TerminalClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.TerminalID == uuid.Nil {
		return nil, fmt.Errorf("terminal id missing from token")
	}
	if claims.VenueID == uuid.Nil {
		return nil, fmt.Errorf("venue id missing from token")
	}
	return claims, nil
}
