package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoExpiry     = errors.New("token has no expiry claim")
)

// Claims is the subset of the backend's token payload the client
// cares about. The signature is the server's business; the client
// only reads claims, it never verifies them.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Inspector reads claims out of bearer tokens without verification.
type Inspector interface {
	Inspect(token string) (*Claims, error)
	IsExpired(token string) bool
}

type inspectorImpl struct {
	parser *jwt.Parser
}

func New() Inspector {
	return &inspectorImpl{
		parser: jwt.NewParser(),
	}
}

func (i *inspectorImpl) Inspect(token string) (*Claims, error) {
	claims := &Claims{}

	if _, _, err := i.parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IsExpired treats unparsable tokens and tokens without an expiry as
// expired, so a half-written credentials file cannot keep the client
// in a phantom authenticated state.
func (i *inspectorImpl) IsExpired(token string) bool {
	claims, err := i.Inspect(token)
	if err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return true
	}

	return claims.ExpiresAt.Before(time.Now())
}
