package session

import (
	"context"
	"net/http"

	"github.com/sofratec/erp-app/internal/httpx"
)

type ctxKey string

const (
	sidCtxKey   = ctxKey("sessionID")
	emailCtxKey = ctxKey("sessionEmail")
)

// WithSession stores session id and email in context.
func WithSession(ctx context.Context, sid, email string) context.Context {
	ctx = context.WithValue(ctx, sidCtxKey, sid)
	return context.WithValue(ctx, emailCtxKey, email)
}

// IDFromContext extracts the session id.
func IDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sidCtxKey).(string)
	return v, ok && v != ""
}

// EmailFromContext extracts the logged-in user's email for display.
func EmailFromContext(ctx context.Context) string {
	v, _ := ctx.Value(emailCtxKey).(string)
	return v
}

// Middleware resolves the signed cookie into a live session and attaches it
// to the request context. Invalid or expired cookies pass through anonymous.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sid, ok := s.ParseCookie(r); ok {
			if row, err := s.Get(r.Context(), sid); err == nil {
				s.Touch(r.Context(), sid)
				r = r.WithContext(WithSession(r.Context(), sid, row.Email))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession redirects to /login (HTML) or answers 401 (JSON) when no
// live session is attached.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IDFromContext(r.Context()); !ok {
			if httpx.WantsJSON(r) {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
