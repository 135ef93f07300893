package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("agent-1", true, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.True(t, claims.IsManager)
	assert.Equal(t, "agent-1", claims.Subject)
}

func TestValidateJWT_Rejects(t *testing.T) {
	valid, err := GenerateJWT("agent-1", false, "secret", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateJWT("agent-1", false, "secret", -time.Minute)
	require.NoError(t, err)
	anonymous, err := GenerateJWT("", false, "secret", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{AgentID: "agent-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, "secret"},
		{"no agent", anonymous, "secret"},
		{"unsigned", none, "secret"},
		{"garbage", "not.a.jwt", "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateJWT(tt.token, tt.secret)
			assert.Error(t, err)
		})
	}
}
