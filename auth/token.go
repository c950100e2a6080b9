package auth

import (
	"time"

	"teamboard/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the data carried by a connection credential. Identity is the
// opaque user id that gets bound to the connection at register time.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed credential for an identity. Issuing tokens
// is not a product feature of this layer; this exists for the dev tooling
// and the tests.
func GenerateToken(secret []byte, identity string, tokenDuration time.Duration) (string, error) {
	claims := &Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "teamboard",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates the signature and expiration of a
// credential presented at handshake time.
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, errors.ErrInvalidToken
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.ErrInvalidToken
}
