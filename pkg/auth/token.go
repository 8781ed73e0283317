// Package auth mints and verifies the HS256 access tokens the API accepts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

// clockSkew tolerated on exp/iat between the API replicas and the minter.
const clockSkew = 30 * time.Second

var (
	ErrNoSecret     = errors.New("jwt secret is required")
	ErrNoIssuer     = errors.New("jwt issuer is required")
	ErrBadPrincipal = errors.New("token principal invalid")
)

// Principal is who a token speaks for.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (p Principal) validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id missing", ErrBadPrincipal)
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("%w: role %q", ErrBadPrincipal, p.Role)
	}
	return nil
}

// Claims is the JWT body. sub repeats user_id so generic JWT tooling can
// read the caller.
type Claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}

// MintAccessToken signs a token for p valid from now for cfg.TTL().
func MintAccessToken(cfg config.JWTConfig, now time.Time, p Principal) (string, error) {
	if cfg.Secret == "" {
		return "", ErrNoSecret
	}
	if cfg.Issuer == "" {
		return "", ErrNoIssuer
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	claims := Claims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry and returns the
// claims. Tokens without exp, or whose sub disagrees with user_id, fail.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if err := claims.Principal().validate(); err != nil {
		return nil, err
	}
	if claims.Subject != "" && claims.Subject != claims.UserID.String() {
		return nil, fmt.Errorf("%w: subject mismatch", ErrBadPrincipal)
	}
	return claims, nil
}
