package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is the iss claim of custom sign-in tokens.
const TokenIssuer = "futdraw"

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by a custom sign-in token. The subject is the owner id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// User returns the user the token signs in as.
func (c *Claims) User() *User {
	name := c.Name
	if name == "" {
		name = c.Subject
	}
	return &User{ID: c.Subject, Name: name, Username: name}
}

// IssueToken mints an HS256 custom token for owner, valid for ttl.
func IssueToken(secret, owner, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrInvalidToken)
	}
	if owner == "" {
		return "", fmt.Errorf("%w: empty owner", ErrInvalidToken)
	}
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   owner,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies a custom token and returns its claims.
func ParseToken(secret, token string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: token sign-in disabled", ErrInvalidToken)
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}
