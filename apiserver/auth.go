package apiserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the caller of a solve request. The daemon has no
// concept of local user accounts; every caller presents a token signed
// with the daemon's pre-shared secret, identified only by Subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 JWTs against a single shared
// secret, adapted from the original per-user login flow with the
// credential-store half removed: there is no password to check here, only
// a bearer token to validate.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an Authenticator signing with secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken mints a token for subject valid for ttl.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates tokenString, returning its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("apiserver: invalid token")
	}
	return claims, nil
}

// requireAuth wraps next so it only runs when the request carries a valid
// "Authorization: Bearer <token>" header.
func (a *Authenticator) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := a.Verify(tokenString); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
