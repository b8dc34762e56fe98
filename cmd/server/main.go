package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hhsantos/flight-calendar/internal/auth"
	"github.com/hhsantos/flight-calendar/internal/config"
	"github.com/hhsantos/flight-calendar/internal/database"
	"github.com/hhsantos/flight-calendar/internal/handlers"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/notify"
	"github.com/hhsantos/flight-calendar/internal/router"
	"github.com/hhsantos/flight-calendar/internal/service"
	"github.com/hhsantos/flight-calendar/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer store.Close()
	repo := database.NewRepository(store)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	publishers := notify.Multi{hub}
	if cfg.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			log.Fatalf("Failed to connect to NATS at %s: %v", cfg.NATSURL, err)
		}
		defer nc.Close()
		publishers = append(publishers, nc)
	}
	var sender notify.Sender = notify.NoopSender{}
	if cfg.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
	}
	mailer := notify.NewAsync(notify.NewMailer(sender, repo, cfg.MailFrom), notify.DefaultAsyncTimeout)
	publishers = append(publishers, mailer)

	bookingService := service.NewBookingService(repo, publishers)
	adapter := auth.NewAdapter(repo, cfg.CredentialsMode)
	tokens := auth.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL)

	var google auth.FederatedProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	}

	if adapter.Mode() == config.CredentialsTrusted {
		slog.Warn("auth_event", "event", "trusted_credentials",
			"detail", "users without a password hash sign in with any password")
	}

	r := router.SetupRouter(router.Deps{
		API:           handlers.NewHandler(bookingService),
		Auth:          handlers.NewAuthHandler(adapter, tokens, google, cfg.Production()),
		Sessions:      tokens,
		Live:          hub,
		Limiter:       middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
		CSRFKey:       csrfKey(cfg),
		SecureCookies: cfg.Production(),
		TrustProxy:    cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server_start",
			"port", cfg.Port,
			"env", cfg.Env,
			"store", cfg.StoreDriver,
			"google", cfg.GoogleEnabled(),
			"nats", cfg.NATSURL != "",
			"mail", cfg.ResendAPIKey != "",
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown", "error", err)
	}
	mailer.Wait()
	slog.Info("server_stopped")
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Production() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// csrfKey returns the 32-byte key for gorilla/csrf. Without CSRF_KEY the key is
// derived from the session secret so every instance agrees on it.
func csrfKey(cfg *config.Config) []byte {
	if cfg.CSRFKey != "" {
		sum := sha256.Sum256([]byte(cfg.CSRFKey))
		return sum[:]
	}
	if cfg.SessionSecret != "" {
		sum := sha256.Sum256([]byte("csrf:" + cfg.SessionSecret))
		return sum[:]
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Failed to generate CSRF key: %v", err)
	}
	return key
}
