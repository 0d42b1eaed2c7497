// Package auth guards HTTP handlers with a static bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const scheme = "Bearer "

// Token extracts the bearer token from the Authorization header.
func Token(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len(scheme) || !strings.EqualFold(h[:len(scheme)], scheme) {
		return "", false
	}
	return strings.TrimSpace(h[len(scheme):]), true
}

// Bearer rejects requests that do not carry token. An empty token disables
// the check.
func Bearer(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := Token(r)
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="erdispatch"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
