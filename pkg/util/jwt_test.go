package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateTokenPair(t *testing.T) {
	tests := []struct {
		name    string
		actorID string
		email   string
		role    string
		wantErr bool
	}{
		{
			name:    "Valid token generation",
			actorID: "8a7b1c52-0f3e-4d8e-9d61-1f0c3b7f7a10",
			email:   "investor@example.com",
			role:    RoleUser,
		},
		{
			name:    "With admin role",
			actorID: "c1d2e3f4-0000-4000-8000-000000000002",
			email:   "admin@example.com",
			role:    RoleAdmin,
		},
		{
			name:    "Missing actor",
			actorID: "",
			role:    RoleUser,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := GenerateTokenPair(tt.actorID, tt.email, tt.role, testSecret, 15*time.Minute, 7*24*time.Hour)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, tokens)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, tokens)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)
			assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
		})
	}
}

func TestValidateToken(t *testing.T) {
	actorID := "8a7b1c52-0f3e-4d8e-9d61-1f0c3b7f7a10"
	email := "investor@example.com"

	tokens, err := GenerateTokenPair(actorID, email, RoleUser, testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Valid access token", token: tokens.AccessToken, secret: testSecret},
		{name: "Valid refresh token", token: tokens.RefreshToken, secret: testSecret},
		{name: "Invalid secret", token: tokens.AccessToken, secret: "wrong-secret", wantErr: ErrInvalidToken},
		{name: "Invalid token format", token: "invalid.token.format", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty token", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, claims)
			assert.Equal(t, actorID, claims.ActorID)
			assert.Equal(t, actorID, claims.Subject)
			assert.Equal(t, email, claims.Email)
			assert.Equal(t, RoleUser, claims.Role)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken("actor-1", "", RoleUser, testSecret, -time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestTokenClaims(t *testing.T) {
	token, err := GenerateToken("actor-42", "user@example.com", RoleAdmin, testSecret, 15*time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "actor-42", claims.ActorID)
	assert.Equal(t, RoleAdmin, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.True(t, claims.IssuedAt.Before(claims.ExpiresAt.Time))
}
