// Package guard gates navigation to protected paths on the persisted session
// snapshot.
//
// The guard runs per request and reads the request-scoped mirror of the
// "auth-storage" envelope (a cookie of the same name) rather than the
// in-memory session store, since it may run in a separate execution context
// from the store's owner. Any failure to read or parse the envelope degrades
// to a redirect, never to an error.
package guard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultCookieName mirrors the storage key the session store persists under.
const DefaultCookieName = "auth-storage"

// Config tells the guard which path prefixes are protected and where to send
// unauthenticated requests.
type Config struct {
	ProtectedPrefixes []string
	LoginPath         string
	CookieName        string
}

// sessionEnvelope is the slice of the persisted envelope the guard cares about.
type sessionEnvelope struct {
	State struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	} `json:"state"`
}

// Middleware returns a handler that allows requests to unprotected paths
// through untouched and redirects unauthenticated requests to protected
// paths to the login page, carrying the requested path as returnUrl.
func Middleware(cfg Config, logger *slog.Logger) func(http.Handler) http.Handler {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	mLogger := logger.With("component", "guard")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !isProtected(path, cfg.ProtectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil || !authenticated(cookie.Value) {
				mLogger.DebugContext(r.Context(), "Redirecting unauthenticated request", "path", path)
				redirectToLogin(w, r, cfg.LoginPath, path)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// authenticated parses the cookie value as a session envelope and reports the
// persisted isAuthenticated flag. Undecodable or malformed values are simply
// not authenticated.
func authenticated(raw string) bool {
	// The login handler stores the envelope URL-encoded; fall back to the raw
	// value for cookies written without encoding.
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}
	var env sessionEnvelope
	if err := json.Unmarshal([]byte(decoded), &env); err != nil {
		return false
	}
	return env.State.IsAuthenticated
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath, returnPath string) {
	target := loginPath + "?returnUrl=" + url.QueryEscape(returnPath)
	http.Redirect(w, r, target, http.StatusFound)
}
