package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/hhsantos/flight-calendar/internal/auth"
	"github.com/hhsantos/flight-calendar/internal/config"
	"github.com/hhsantos/flight-calendar/internal/database"
	"github.com/hhsantos/flight-calendar/internal/handlers"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/hhsantos/flight-calendar/internal/service"
	"github.com/hhsantos/flight-calendar/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *mux.Router
	tokens *auth.TokenIssuer
	repo   *database.Repository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := database.NewRepository(database.NewFileStore(filepath.Join(t.TempDir(), "db.json")))
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	r := SetupRouter(Deps{
		API:      handlers.NewHandler(service.NewBookingService(repo, nil)),
		Auth:     handlers.NewAuthHandler(auth.NewAdapter(repo, config.CredentialsTrusted), tokens, nil, false),
		Sessions: tokens,
		Live:     websocket.NewHub(),
		Limiter:  middleware.NewRateLimiter(100, 100),
		CSRFKey:  bytes.Repeat([]byte("k"), 32),
	})
	return &testServer{router: r, tokens: tokens, repo: repo}
}

func (s *testServer) do(t *testing.T, req *http.Request, p *models.Principal) *httptest.ResponseRecorder {
	t.Helper()
	if p != nil {
		token, _, err := s.tokens.Issue(p)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var (
	admin = &models.Principal{ID: "1", Name: "Administrador", Email: "admin@aeroclub.com", Role: models.RoleAdmin}
	pilot = &models.Principal{ID: "9", Name: "Ana", Email: "ana@aeroclub.com", Role: models.RolePilot}
)

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ReservationsRequireSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/reservations", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No autorizado"}`, rec.Body.String())

	rec = s.do(t, jsonBody(http.MethodPost, "/api/reservations", `{"avionId":"1"}`), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = s.do(t, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ReservationLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, jsonBody(http.MethodPost, "/api/reservations",
		`{"avionId":"1","fecha":"2026-10-20","horaInicio":"09:00","horaFin":"11:00"}`), pilot)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Reservation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, pilot.ID, created.UserID)
	assert.Equal(t, models.ReservationStatusPending, created.Status)

	plane, err := s.repo.GetAircraftByID(t.Context(), "1")
	require.NoError(t, err)
	assert.Equal(t, models.AircraftStatusReserved, plane.Status)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/reservations?fecha=2026-10-20", nil), pilot)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Reservation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/reservations/"+created.ID, nil), pilot)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, jsonBody(http.MethodPut, "/api/reservations",
		`{"id":"`+created.ID+`","estado":"confirmed"}`), pilot)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/reservations?id="+created.ID, nil), pilot)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/reservations?id="+created.ID, nil), pilot)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/reservations", nil), pilot)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"ID de reserva requerido"}`, rec.Body.String())
}

func TestRouter_AircraftStatusNeedsAdmin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, jsonBody(http.MethodPut, "/api/aircraft/2/status", `{"estado":"available"}`), pilot)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, jsonBody(http.MethodPut, "/api/aircraft/2/status", `{"estado":"available"}`), admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/aircraft?estado=available", nil), pilot)
	require.Equal(t, http.StatusOK, rec.Code)
	var fleet []models.Aircraft
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fleet))
	assert.Len(t, fleet, 3)
}

func TestRouter_Preflight(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, httptest.NewRequest(http.MethodOptions, "/api/reservations", nil), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRouter_Pages(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/signin?callbackUrl=%2F", rec.Header().Get("Location"))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/", nil), pilot)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hola, Ana.")

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/auth/signin", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="gorilla.csrf.Token"`)
	assert.NotContains(t, rec.Body.String(), "/api/auth/google")

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/error?error=Configuration", rec.Header().Get("Location"))
}

func TestRouter_CredentialsSignIn(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, jsonBody(http.MethodPost, "/api/auth/credentials",
		`{"email":"admin@aeroclub.com","password":"cualquiera"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string            `json:"token"`
		User  *models.Principal `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = s.do(t, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	form := url.Values{"email": {"admin@aeroclub.com"}, "password": {"x"}}
	req = httptest.NewRequest(http.MethodPost, "/api/auth/credentials", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = s.do(t, req, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "form posts need a CSRF token")
}

func newLimitedRouter(t *testing.T, trustProxy bool) *mux.Router {
	t.Helper()
	repo := database.NewRepository(database.NewFileStore(filepath.Join(t.TempDir(), "db.json")))
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return SetupRouter(Deps{
		API:        handlers.NewHandler(service.NewBookingService(repo, nil)),
		Auth:       handlers.NewAuthHandler(auth.NewAdapter(repo, config.CredentialsTrusted), tokens, nil, false),
		Sessions:   tokens,
		Live:       websocket.NewHub(),
		Limiter:    middleware.NewRateLimiter(0.001, 2),
		CSRFKey:    bytes.Repeat([]byte("k"), 32),
		TrustProxy: trustProxy,
	})
}

func sessionFrom(r *mux.Router, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_AuthRateLimited(t *testing.T) {
	r := newLimitedRouter(t, false)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	r := newLimitedRouter(t, false)

	limited := 0
	for i := 0; i < 50; i++ {
		if sessionFrom(r, "203.0.113.9:4000", fmt.Sprintf("198.51.100.%d", i+1)) == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 48, limited)
}

func TestRouter_RateLimitTrustedProxy(t *testing.T) {
	r := newLimitedRouter(t, true)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, sessionFrom(r, "10.0.0.1:4000", fmt.Sprintf("198.51.100.%d", i+1)))
	}

	assert.Equal(t, http.StatusUnauthorized, sessionFrom(r, "10.0.0.1:4000", "192.0.2.7"))
	assert.Equal(t, http.StatusUnauthorized, sessionFrom(r, "10.0.0.1:4000", "192.0.2.7"))
	assert.Equal(t, http.StatusTooManyRequests, sessionFrom(r, "10.0.0.1:4000", "192.0.2.7"))
}
