// Package auth issues and validates the session tokens handed to the SPA
// after the OAuth callback.
package auth

import (
	"fmt"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL bounds how long a session token stays valid.
const DefaultSessionTTL = 30 * time.Minute

// TokenIssuer signs and parses HS256 session tokens. The claims carry the
// provider tokens so the API stays stateless across instances.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Sign creates a session token for the given session.
func (i *TokenIssuer) Sign(session domain.Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":           session.Email,
		"name":          session.Name,
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"iat":           now.Unix(),
		"exp":           now.Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", apperr.InternalWithError(err)
	}
	return signed, nil
}

// Parse validates a session token and reconstructs the session. Only
// HS256 is accepted.
func (i *TokenIssuer) Parse(tokenString string) (*domain.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, apperr.InvalidToken(err.Error())
	}
	if !token.Valid {
		return nil, apperr.InvalidToken("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.InvalidToken("invalid claims")
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return nil, apperr.InvalidToken("missing subject")
	}

	session := &domain.Session{Email: email}
	if name, ok := claims["name"].(string); ok {
		session.Name = name
	}
	if at, ok := claims["access_token"].(string); ok {
		session.AccessToken = at
	}
	if rt, ok := claims["refresh_token"].(string); ok {
		session.RefreshToken = rt
	}

	return session, nil
}
