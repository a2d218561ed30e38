package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("invalid identity token")

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIdentifier extracts a connection's pre-verified identity from a signed
// token minted by the credential service. The relay performs no
// authentication of its own: a valid token is trusted as-is, and a request
// without a token yields an anonymous connection whose identity is taken from
// its join frame.
type TokenIdentifier struct {
	secret []byte
}

func NewTokenIdentifier(secret []byte) *TokenIdentifier {
	return &TokenIdentifier{secret: secret}
}

// Identify returns the identity bound to the request's token, "" when the
// request carries no token, or ErrBadToken when a token is present but does
// not verify.
func (ti *TokenIdentifier) Identify(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if raw == "" {
		return "", nil
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid || claims.Email == "" {
		return "", ErrBadToken
	}
	return claims.Email, nil
}

// IssueIdentityToken signs an identity token the relay will accept. It exists
// for the credential service and for tests; the relay itself never mints
// tokens.
func IssueIdentityToken(secret []byte, email string, ttl time.Duration) (string, error) {
	claims := &identityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    "relay",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
