package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Roles carried in the token.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims identifies the actor behind a request. Subject holds the actor id.
type Claims struct {
	ActorID string `json:"actor_id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GenerateToken signs a single HS256 token for the actor.
func GenerateToken(actorID, email, role, secret string, expiry time.Duration) (string, error) {
	if actorID == "" {
		return "", fmt.Errorf("%w: empty actor id", ErrInvalidToken)
	}

	now := time.Now()
	claims := Claims{
		ActorID: actorID,
		Email:   email,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// GenerateTokenPair issues an access and a refresh token for development
// and test fixtures. Production tokens come from the identity provider.
func GenerateTokenPair(actorID, email, role, secret string, accessExpiry, refreshExpiry time.Duration) (*TokenPair, error) {
	access, err := GenerateToken(actorID, email, role, secret, accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateToken(actorID, email, role, secret, refreshExpiry)
	if err != nil {
		return nil, err
	}
	// Same second and same claims would produce an identical string.
	if refresh == access {
		refresh, err = GenerateToken(actorID, email, role, secret, refreshExpiry+time.Second)
		if err != nil {
			return nil, err
		}
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateToken parses and verifies a token and returns its claims.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ActorID == "" {
		claims.ActorID = claims.Subject
	}
	if claims.ActorID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
