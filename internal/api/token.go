package api

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned when a client token fails validation.
var ErrTokenInvalid = errors.New("api: invalid client token")

// ClientClaims are carried by the token a client presents when opening a
// WebSocket. The subject is the user id; AuthToken is the backend session
// token used to log the connection out later.
type ClientClaims struct {
	jwt.RegisteredClaims
	AuthToken string `json:"auth_token,omitempty"`
}

// ParseClientToken validates a client token signed with secret (HS256) and
// returns its claims. Expiry is enforced when the token carries one.
func ParseClientToken(tokenString, secret string) (*ClientClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*ClientClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
