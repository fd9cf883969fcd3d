package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for missing, malformed, or expired credentials.
var ErrInvalidToken = errors.New("invalid or expired token")

// JWT wraps a signing secret for issuing and verifying bearer tokens. It is
// the only identity integration the service has; whoever signed the token
// decided who the principal is.
type JWT struct {
	secret []byte
}

// New creates a new JWT signer/verifier.
func New(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

// Verify checks a token and returns the principal name from the sub claim.
func (j *JWT) Verify(tok string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	principal, _ := claims["sub"].(string)
	if principal == "" {
		return "", fmt.Errorf("%w: no sub claim", ErrInvalidToken)
	}
	return principal, nil
}

// Sign creates a token for the given principal with the given TTL.
func (j *JWT) Sign(principal string, ttl time.Duration) (string, error) {
	if principal == "" {
		return "", errors.New("empty principal")
	}
	claims := jwt.MapClaims{
		"sub": principal,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(j.secret)
}
