package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hhsantos/flight-calendar/internal/auth"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) SignInCredentials(ctx context.Context, email, password string) (*models.Principal, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func (m *mockAuthenticator) SignInFederated(ctx context.Context, id auth.Identity) (*models.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func (m *mockAuthenticator) Register(ctx context.Context, name, email, password string) (*models.Principal, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

type fixedIssuer struct{}

func (fixedIssuer) Issue(p *models.Principal) (string, time.Time, error) {
	return "token-" + p.ID, time.Now().Add(time.Hour), nil
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (m *mockProvider) Identify(ctx context.Context, code string) (auth.Identity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestAuthHandler_CredentialsJSON(t *testing.T) {
	a := new(mockAuthenticator)
	h := NewAuthHandler(a, fixedIssuer{}, nil, false)

	a.On("SignInCredentials", mock.Anything, "admin@aeroclub.com", "x").Return(&models.Principal{ID: "1", Role: models.RoleAdmin}, nil)
	a.On("SignInCredentials", mock.Anything, "ghost@aeroclub.com", "x").Return(nil, auth.ErrInvalidCredentials)

	rec := httptest.NewRecorder()
	h.Credentials(rec, jsonRequest(t, http.MethodPost, "/api/auth/credentials", `{"email":"admin@aeroclub.com","password":"x"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "token-1", resp.Token)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	h.Credentials(rec, jsonRequest(t, http.MethodPost, "/api/auth/credentials", `{"email":"ghost@aeroclub.com","password":"x"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestAuthHandler_CredentialsForm(t *testing.T) {
	a := new(mockAuthenticator)
	h := NewAuthHandler(a, fixedIssuer{}, nil, false)

	a.On("SignInCredentials", mock.Anything, "admin@aeroclub.com", "x").Return(&models.Principal{ID: "1"}, nil)
	a.On("SignInCredentials", mock.Anything, "ghost@aeroclub.com", "x").Return(nil, auth.ErrInvalidCredentials)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/credentials", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.Credentials(rec, req)
		return rec
	}

	rec := post(url.Values{"email": {"admin@aeroclub.com"}, "password": {"x"}, "callbackUrl": {"/reservas"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/reservas", rec.Header().Get("Location"))
	assert.NotNil(t, sessionCookie(rec))

	rec = post(url.Values{"email": {"admin@aeroclub.com"}, "password": {"x"}, "callbackUrl": {"//evil.example.com"}})
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = post(url.Values{"email": {"ghost@aeroclub.com"}, "password": {"x"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin?error=CredentialsSignin", rec.Header().Get("Location"))
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate", auth.ErrEmailTaken, http.StatusConflict},
		{"weak password", auth.ErrWeakPassword, http.StatusBadRequest},
		{"bad email", auth.ErrInvalidEmail, http.StatusBadRequest},
		{"store failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(mockAuthenticator)
			h := NewAuthHandler(a, fixedIssuer{}, nil, false)

			var p *models.Principal
			if tt.err == nil {
				p = &models.Principal{ID: "5", Role: models.RolePilot}
			}
			a.On("Register", mock.Anything, "Ana", "ana@aeroclub.com", "12345678").Return(p, tt.err)

			rec := httptest.NewRecorder()
			h.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register",
				`{"nombre":"Ana","email":"ana@aeroclub.com","password":"12345678"}`))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			a.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_GoogleNotConfigured(t *testing.T) {
	h := NewAuthHandler(new(mockAuthenticator), fixedIssuer{}, nil, false)

	rec := httptest.NewRecorder()
	h.GoogleStart(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/error?error=Configuration", rec.Header().Get("Location"))
}

func TestAuthHandler_GoogleFlow(t *testing.T) {
	a := new(mockAuthenticator)
	g := new(mockProvider)
	h := NewAuthHandler(a, fixedIssuer{}, g, false)

	rec := httptest.NewRecorder()
	h.GoogleStart(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Contains(t, rec.Header().Get("Location"), "state="+state.Value)

	id := auth.Identity{Subject: "g-1", Email: "marta@gmail.com", Name: "Marta"}
	g.On("Identify", mock.Anything, "code-1").Return(id, nil)
	a.On("SignInFederated", mock.Anything, id).Return(&models.Principal{ID: "7", Role: models.RolePilot}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=code-1&state="+state.Value, nil)
	req.AddCookie(state)
	rec = httptest.NewRecorder()
	h.GoogleCallback(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "token-7", c.Value)
	a.AssertExpectations(t)
}

func TestAuthHandler_GoogleCallbackErrors(t *testing.T) {
	g := new(mockProvider)
	h := NewAuthHandler(new(mockAuthenticator), fixedIssuer{}, g, false)
	g.On("Identify", mock.Anything, "bad").Return(auth.Identity{}, errors.New("exchange failed"))

	tests := []struct {
		name     string
		target   string
		cookie   string
		location string
	}{
		{"state mismatch", "/api/auth/google/callback?code=c&state=a", "b", "/auth/error?error=OAuthCallback"},
		{"no cookie", "/api/auth/google/callback?code=c&state=a", "", "/auth/error?error=OAuthCallback"},
		{"provider denied", "/api/auth/google/callback?error=access_denied", "", "/auth/error?error=AccessDenied"},
		{"exchange failed", "/api/auth/google/callback?code=bad&state=s", "s", "/auth/error?error=OAuthCallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.GoogleCallback(rec, req)

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestAuthHandler_SessionAndSignOut(t *testing.T) {
	h := NewAuthHandler(new(mockAuthenticator), fixedIssuer{}, nil, false)

	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), testPilot))
	rec = httptest.NewRecorder()
	h.Session(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"id":"u1","name":"Ana","email":"ana@aeroclub.com","role":"pilot"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.SignOut(rec, jsonRequest(t, http.MethodPost, "/api/auth/signout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestAuthHandler_Views(t *testing.T) {
	h := NewAuthHandler(new(mockAuthenticator), fixedIssuer{}, new(mockProvider), false)

	rec := httptest.NewRecorder()
	h.SignInPage(rec, httptest.NewRequest(http.MethodGet, "/auth/signin?error=CredentialsSignin", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email o contraseña incorrectos.")
	assert.Contains(t, rec.Body.String(), `action="/api/auth/credentials"`)
	assert.Contains(t, rec.Body.String(), "/api/auth/google")

	rec = httptest.NewRecorder()
	h.ErrorPage(rec, httptest.NewRequest(http.MethodGet, "/auth/error?error=Configuration", nil))
	assert.Contains(t, rec.Body.String(), "no está configurado")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), testPilot))
	rec = httptest.NewRecorder()
	h.Home(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hola, Ana.")
}
