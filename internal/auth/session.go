package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

const (
	SessionUserIDKey = "user_id"
	sessionFlashKey  = "flash"
)

// NewSessionManager creates an SCS session manager backed by the application DB.
// The driver parameter selects the appropriate store: "mysql", "postgres", or
// "sqlite3" (default).
func NewSessionManager(db *sqlx.DB, driver string, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case "mysql":
		sm.Store = mysqlstore.New(db.DB)
	case "postgres":
		sm.Store = postgresstore.New(db.DB)
	default: // sqlite3
		sm.Store = sqlite3store.New(db.DB)
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "newswire_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string // success, error, info
	Message string
}

// SetFlash queues a message for the next page view.
func SetFlash(sm *scs.SessionManager, ctx context.Context, kind, msg string) {
	sm.Put(ctx, sessionFlashKey, kind+"|"+msg)
}

// PopFlash returns and clears the queued message, if any.
func PopFlash(sm *scs.SessionManager, ctx context.Context) *Flash {
	raw := sm.PopString(ctx, sessionFlashKey)
	if raw == "" {
		return nil
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] == '|' {
			return &Flash{Kind: raw[:i], Message: raw[i+1:]}
		}
	}
	return &Flash{Kind: "info", Message: raw}
}
