package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hhsantos/flight-calendar/internal/auth"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/models"
)

const (
	stateCookie = "oauth_state"
	stateTTL    = 10 * time.Minute
)

// Authenticator resolves sign-in attempts to principals
type Authenticator interface {
	SignInCredentials(ctx context.Context, email, password string) (*models.Principal, error)
	SignInFederated(ctx context.Context, id auth.Identity) (*models.Principal, error)
	Register(ctx context.Context, name, email, password string) (*models.Principal, error)
}

// SessionIssuer signs session tokens
type SessionIssuer interface {
	Issue(p *models.Principal) (string, time.Time, error)
}

// AuthHandler serves the sign-in flows and the pages they redirect to
type AuthHandler struct {
	auth          Authenticator
	sessions      SessionIssuer
	google        auth.FederatedProvider
	secureCookies bool
}

// NewAuthHandler creates an AuthHandler. google may be nil when the provider
// is not configured.
func NewAuthHandler(a Authenticator, sessions SessionIssuer, google auth.FederatedProvider, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          a,
		sessions:      sessions,
		google:        google,
		secureCookies: secureCookies,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string            `json:"token"`
	User    *models.Principal `json:"user"`
	Expires time.Time         `json:"expires"`
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// Credentials handles POST /api/auth/credentials. JSON callers get the token
// in the body; form posts are redirected like a browser sign-in.
func (h *AuthHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	jsonBody := isJSON(r)
	callback := "/"

	if jsonBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, signInError("CredentialsSignin"), http.StatusSeeOther)
			return
		}
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
		callback = safeCallback(r.PostForm.Get("callbackUrl"))
	}

	p, err := h.auth.SignInCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path)
		}
		if jsonBody {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				respondError(w, http.StatusUnauthorized, "Credenciales inválidas")
			} else {
				respondError(w, http.StatusInternalServerError, "Error al iniciar sesión")
			}
			return
		}
		http.Redirect(w, r, signInError("CredentialsSignin"), http.StatusSeeOther)
		return
	}

	resp, err := h.startSession(w, p)
	if err != nil {
		slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "Error al iniciar sesión")
		return
	}
	if jsonBody {
		respondJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, callback, http.StatusSeeOther)
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
		return
	}

	p, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		respondError(w, http.StatusConflict, "El email ya está registrado")
		return
	case errors.Is(err, auth.ErrWeakPassword):
		respondError(w, http.StatusBadRequest, "La contraseña debe tener al menos 8 caracteres")
		return
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrMissingEmail):
		respondError(w, http.StatusBadRequest, "Email no válido")
		return
	case err != nil:
		slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "Error al registrar el usuario")
		return
	}

	resp, err := h.startSession(w, p)
	if err != nil {
		slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "Error al iniciar sesión")
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GoogleStart handles GET /api/auth/google
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.Redirect(w, r, authError("Configuration"), http.StatusFound)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /api/auth/google/callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.Redirect(w, r, authError("Configuration"), http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		slog.Info("auth_event", "event", "oauth_denied", "error", e)
		http.Redirect(w, r, authError("AccessDenied"), http.StatusFound)
		return
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") || q.Get("code") == "" {
		slog.Warn("auth_event", "event", "oauth_state_mismatch")
		http.Redirect(w, r, authError("OAuthCallback"), http.StatusFound)
		return
	}

	id, err := h.google.Identify(r.Context(), q.Get("code"))
	if err != nil {
		slog.Warn("auth_event", "event", "oauth_identify_failed", "error", err)
		http.Redirect(w, r, authError("OAuthCallback"), http.StatusFound)
		return
	}
	p, err := h.auth.SignInFederated(r.Context(), id)
	if err != nil {
		slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path)
		http.Redirect(w, r, authError("OAuthCallback"), http.StatusFound)
		return
	}
	if _, err := h.startSession(w, p); err != nil {
		slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path)
		http.Redirect(w, r, authError("Default"), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autorizado")
		return
	}
	respondJSON(w, http.StatusOK, map[string]*models.Principal{"user": p})
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	if p, ok := middleware.PrincipalFrom(r.Context()); ok {
		slog.Info("auth_event", "event", "signed_out", "user_id", p.ID)
	}
	if isJSON(r) {
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, middleware.SignInPath, http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, p *models.Principal) (*sessionResponse, error) {
	token, expires, err := h.sessions.Issue(p)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return &sessionResponse{Token: token, User: p, Expires: expires}, nil
}

func signInError(code string) string {
	return middleware.SignInPath + "?error=" + url.QueryEscape(code)
}

func authError(code string) string {
	return "/auth/error?error=" + url.QueryEscape(code)
}

// safeCallback keeps redirects on this site
func safeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
