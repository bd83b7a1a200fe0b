// Package auth verifies the HS256 access tokens minted by the identity
// provider. Sign-in, refresh and account lifecycle all live upstream; this
// service only needs to know who is calling.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scoutlink/backend/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the account identity inside an access token. AccountID is
// the provider's opaque string id, never minted here.
type Claims struct {
	AccountID   string             `json:"user_id"`
	AccountType domain.AccountType `json:"account_type"`
	jwt.RegisteredClaims
}

// JWTManager validates access tokens against the shared signing secret.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
	issuer       string
}

func NewJWTManager(secret string, accessExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		issuer:       "scoutlink",
	}
}

// GenerateAccessToken mints a token with this manager's secret. Used by
// tests and local tooling; production tokens come from the identity
// provider with the same claims shape.
func (m *JWTManager) GenerateAccessToken(accountID string, accountType domain.AccountType) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID:   accountID,
		AccountType: accountType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   accountID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken validates a token and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.AccountID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
