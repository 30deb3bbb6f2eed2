package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sofratec/erp-app/internal/auth"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/middleware"
	"github.com/sofratec/erp-app/internal/session"
	"github.com/sofratec/erp-app/internal/view"
)

type AuthHandler struct {
	*Deps
	httpClient *http.Client
}

func NewAuthHandler(d *Deps) *AuthHandler {
	return &AuthHandler{Deps: d, httpClient: &http.Client{Timeout: d.Cfg.RequestTimeout}}
}

func (h *AuthHandler) loginURL() string {
	return fmt.Sprintf("%s/%s/auth/login", h.API.BaseURL(), h.Cfg.FacturesVersion)
}

// LoginForm: GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.IDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err := view.Render(w, r, "login.html", nil); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// Login: POST /login - JSON or form
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		creds.Email = strings.TrimSpace(r.Form.Get("email"))
		creds.Password = r.Form.Get("password")
	}
	if creds.Email == "" || creds.Password == "" {
		badRequest(w, r, "validation_failed", map[string]string{"email": "required", "password": "required"})
		return
	}

	pair, err := auth.Authenticate(r.Context(), h.httpClient, h.loginURL(), creds)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, "login_failed", nil)
			return
		}
		middleware.Flash(w, r, "login_failed")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sid, err := h.Sessions.Create(r.Context(), creds.Email, pair)
	if err != nil {
		h.fail(w, r, err, "/login")
		return
	}
	h.Sessions.SetCookie(w, sid)
	h.record(r, "login", "session", sid)

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout: POST /logout (GET tolerated for the header link)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid, ok := session.IDFromContext(r.Context()); ok {
		_ = h.Sessions.Delete(r.Context(), sid)
		h.record(r, "logout", "session", sid)
	}
	h.Sessions.ClearCookie(w)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
