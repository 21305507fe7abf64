package jwt_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"quickassist/infras/jwt"
)

func signedToken(t *testing.T, userID int64, tokenType string, expiresAt time.Time) string {
	t.Helper()

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id":    userID,
		"token_type": tokenType,
		"exp":        expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte("server-side-secret"))
	assert.NoError(t, err)

	return signed
}

func TestInspector_Inspect(t *testing.T) {
	inspector := jwt.New()

	token := signedToken(t, 42, "access", time.Now().Add(time.Hour))

	claims, err := inspector.Inspect(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
}

func TestInspector_Inspect_Garbage(t *testing.T) {
	inspector := jwt.New()

	_, err := inspector.Inspect("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestInspector_IsExpired(t *testing.T) {
	inspector := jwt.New()

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{
			name:    "live token",
			token:   signedToken(t, 1, "access", time.Now().Add(time.Hour)),
			expired: false,
		},
		{
			name:    "expired token",
			token:   signedToken(t, 1, "access", time.Now().Add(-time.Minute)),
			expired: true,
		},
		{
			name:    "garbage token",
			token:   "garbage",
			expired: true,
		},
		{
			name:    "empty token",
			token:   "",
			expired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, inspector.IsExpired(tt.token))
		})
	}
}
