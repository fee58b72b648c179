// Package middleware provides HTTP middleware for the console.
package middleware

import (
	"net/http"

	"creatordesk/internal/session"
)

// RequireToken gates a route group on the presence of a session token
// for the given role. The token is not validated against the API here;
// a stale token surfaces as a rejected upstream call on the page
// itself. Requests without a token are redirected to loginURL.
func RequireToken(sessions *session.Manager, role, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.Token(r.Context(), role) == "" {
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectAuthenticated sends requests that already carry a token for
// the given role to target. Used on login pages so a signed-in visitor
// lands on their dashboard instead of the form.
func RedirectAuthenticated(sessions *session.Manager, role, target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && sessions.Token(r.Context(), role) != "" {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
