package router

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/hhsantos/flight-calendar/internal/handlers"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/models"
)

// Deps are the pieces the router wires together
type Deps struct {
	API      *handlers.Handler
	Auth     *handlers.AuthHandler
	Sessions middleware.TokenParser
	Live     http.Handler
	Limiter  *middleware.RateLimiter

	CSRFKey       []byte
	SecureCookies bool
	TrustProxy    bool
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(chimiddleware.RequestID)
	if d.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS)
	r.Use(middleware.Authenticate(d.Sessions))

	csrf := middleware.CSRF(d.CSRFKey, d.SecureCookies)
	session := middleware.RequireSession
	admin := middleware.RequireRole(models.RoleAdmin)

	api := r.PathPrefix("/api").Subrouter()

	// Reservations
	api.Handle("/reservations", session(http.HandlerFunc(d.API.ListReservations))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/reservations", session(http.HandlerFunc(d.API.CreateReservation))).Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/reservations", session(http.HandlerFunc(d.API.UpdateReservation))).Methods(http.MethodPut, http.MethodOptions)
	api.Handle("/reservations", session(http.HandlerFunc(d.API.DeleteReservation))).Methods(http.MethodDelete, http.MethodOptions)
	api.Handle("/reservations/{id}", session(http.HandlerFunc(d.API.GetReservation))).Methods(http.MethodGet, http.MethodOptions)

	// Fleet
	api.Handle("/aircraft", session(http.HandlerFunc(d.API.ListAircraft))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/aircraft/{id}", session(http.HandlerFunc(d.API.GetAircraft))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/aircraft/{id}/status", admin(http.HandlerFunc(d.API.SetAircraftStatus))).Methods(http.MethodPut, http.MethodOptions)

	// Sign-in
	authAPI := api.PathPrefix("/auth").Subrouter()
	authAPI.Use(middleware.RateLimit(d.Limiter))
	authAPI.Handle("/credentials", csrf(http.HandlerFunc(d.Auth.Credentials))).Methods(http.MethodPost, http.MethodOptions)
	authAPI.HandleFunc("/register", d.Auth.Register).Methods(http.MethodPost, http.MethodOptions)
	authAPI.HandleFunc("/google", d.Auth.GoogleStart).Methods(http.MethodGet)
	authAPI.HandleFunc("/google/callback", d.Auth.GoogleCallback).Methods(http.MethodGet)
	authAPI.HandleFunc("/session", d.Auth.Session).Methods(http.MethodGet, http.MethodOptions)
	authAPI.Handle("/signout", csrf(http.HandlerFunc(d.Auth.SignOut))).Methods(http.MethodPost, http.MethodOptions)

	// WebSocket for live reservation and fleet events
	api.Handle("/ws", session(d.Live)).Methods(http.MethodGet)

	// Views
	r.Handle("/auth/signin", csrf(http.HandlerFunc(d.Auth.SignInPage))).Methods(http.MethodGet)
	r.HandleFunc("/auth/error", d.Auth.ErrorPage).Methods(http.MethodGet)
	r.Handle("/", middleware.RequirePage(csrf(http.HandlerFunc(d.Auth.Home)))).Methods(http.MethodGet)

	r.HandleFunc("/health", d.API.HealthCheck).Methods(http.MethodGet)

	return r
}
