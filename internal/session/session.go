// Package session manages browser sessions and the per-role bearer tokens
// they carry. Tokens obtained from the remote API are the only credentials
// the console holds: one end-user token and one administrator token per
// browser session, under distinct keys, with no coupling between the two.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"creatordesk/internal/model"
)

// Session keys for the role-scoped bearer tokens.
const (
	keyUserToken  = "user_token"
	keyAdminToken = "admin_token"
)

// Manager wraps the scs session manager with the role→token contract.
// Presence of a token is treated as proof of validity; the token is only
// ever invalidated by logout or by the remote API rejecting it downstream.
type Manager struct {
	*scs.SessionManager
}

// New creates a session manager backed by the SQLite sessions table.
func New(db *sql.DB, isDev bool) *Manager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return &Manager{SessionManager: sm}
}

// NewMemory creates a session manager with the default in-memory store.
// Used by tests.
func NewMemory() *Manager {
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return &Manager{SessionManager: sm}
}

// tokenKey maps a role to its session key. Unknown roles map to no key.
func tokenKey(role string) string {
	switch role {
	case model.RoleUser:
		return keyUserToken
	case model.RoleAdmin:
		return keyAdminToken
	default:
		return ""
	}
}

// SetToken stores a bearer token for the given role. The other role's
// token, if any, is left untouched.
func (m *Manager) SetToken(ctx context.Context, role, token string) {
	if key := tokenKey(role); key != "" {
		m.Put(ctx, key, token)
	}
}

// Token returns the bearer token for the given role, or "" if absent.
func (m *Manager) Token(ctx context.Context, role string) string {
	key := tokenKey(role)
	if key == "" {
		return ""
	}
	return m.GetString(ctx, key)
}

// ClearToken removes the bearer token for the given role only.
func (m *Manager) ClearToken(ctx context.Context, role string) {
	if key := tokenKey(role); key != "" {
		m.Remove(ctx, key)
	}
}
