// internal/app/system/auth/auth.go
//
// Package auth is the identity gateway adapter. Identity is issued elsewhere:
// callers present a signed bearer token, or a cookie session obtained by
// exchanging one. This package only resolves who is calling.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey  = "is_authenticated"
	userIDKey  = "user_id"
	userName   = "user_name"
	userAdmin  = "user_admin"
	bearerPref = "bearer "
)

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID      string
	Name    string
	IsAdmin bool
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// Actor converts the request identity into the domain actor. Anonymous
// callers yield the zero Actor.
func Actor(r *http.Request) models.Actor {
	u, ok := CurrentUser(r)
	if !ok || u == nil {
		return models.Actor{}
	}
	return models.Actor{ID: u.ID, Name: u.Name, IsAdmin: u.IsAdmin}
}

// WithTestUser injects u into the request context the way LoadSessionUser does.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// SessionManager resolves identities from bearer tokens and cookie sessions.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	tokens *TokenVerifier
	log    *zap.Logger
}

// NewSessionManager builds the cookie store.
//
// In production (secure=true), cookies are Secure + SameSite=None so the
// marketplace client can call cross-site over HTTPS. In local dev over
// http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// UseTokens enables bearer-token identities.
func (sm *SessionManager) UseTokens(v *TokenVerifier) { sm.tokens = v }

// Tokens returns the configured verifier, or nil.
func (sm *SessionManager) Tokens() *TokenVerifier { return sm.tokens }

// LoadSessionUser injects the caller into context. A bearer token wins over
// a cookie. Invalid credentials leave the request anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := bearerToken(r); ok {
			if sm.tokens == nil {
				next.ServeHTTP(w, r)
				return
			}
			u, err := sm.tokens.Verify(tok)
			if err != nil {
				sm.log.Debug("bearer token rejected", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, withUser(r, u))
			return
		}

		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
				sm.log.Debug("session cookie invalid, treating as anonymous", zap.Error(err))
			} else {
				sm.log.Warn("session store error", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			admin, _ := sess.Values[userAdmin].(bool)
			r = withUser(r, &SessionUser{
				ID:      getString(sess, userIDKey),
				Name:    getString(sess, userName),
				IsAdmin: admin,
			})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects anonymous callers with a 401 JSON body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := CurrentUser(r); ok && u.ID != "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "auth.required", "message": "sign in required"},
		})
	})
}

// Login stores u in the cookie session.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		// A stale or foreign cookie still yields a usable fresh session.
		sm.log.Debug("replacing unreadable session", zap.Error(err))
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userName] = u.Name
	sess.Values[userAdmin] = u.IsAdmin
	return sess.Save(r, w)
}

// Logout expires the cookie session.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) <= len(bearerPref) || !strings.EqualFold(h[:len(bearerPref)], bearerPref) {
		return "", false
	}
	return strings.TrimSpace(h[len(bearerPref):]), true
}
