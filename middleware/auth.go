package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const authRealm = "Restricted Area"

// Authenticator checks dashboard credentials sent with HTTP basic auth.
// Authorized requesters may read stats and are not tracked.
type Authenticator struct {
	username string
	hash     []byte
}

// NewAuthenticator accepts a plain or bcrypt-hashed password. With no
// username nobody is authorized.
func NewAuthenticator(username, password string, cost int) (*Authenticator, error) {
	a := &Authenticator{username: username}
	if username == "" {
		return a, nil
	}

	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		a.hash = []byte(password)
		return a, nil
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash dashboard password: %w", err)
	}
	a.hash = hash
	return a, nil
}

func (a *Authenticator) Enabled() bool {
	return a != nil && a.username != ""
}

// Authorized reports whether r carries valid dashboard credentials
func (a *Authenticator) Authorized(r *http.Request) bool {
	if !a.Enabled() {
		return false
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// Protect answers 401 with a basic auth challenge unless the request is authorized
func (a *Authenticator) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authorized(r) {
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", authRealm))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"Not authorized"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}
