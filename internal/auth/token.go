package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainerrors "taskhub/internal/domain/errors"
)

// TokenManager issues and verifies signed bearer tokens for authenticated users.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate issues an HS256 token carrying the user id as subject, valid
// for the configured TTL from now.
func (t *TokenManager) Generate(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks the signature and validity window and returns the embedded
// user id. Expiry is reported distinctly so callers can log the cause.
func (t *TokenManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domainerrors.ErrTokenExpired
		}
		return "", domainerrors.ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return "", domainerrors.ErrTokenInvalid
	}
	return claims.Subject, nil
}
