package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sofratec/erp-app/internal/apiclient"
	"github.com/sofratec/erp-app/internal/audit"
	"github.com/sofratec/erp-app/internal/auth"
	"github.com/sofratec/erp-app/internal/config"
	"github.com/sofratec/erp-app/internal/db"
	"github.com/sofratec/erp-app/internal/handlers"
	"github.com/sofratec/erp-app/internal/server"
	"github.com/sofratec/erp-app/internal/session"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	// Load configuration from environment
	cfg := config.Load()

	// Session store lives in its own small database, not in the backend ERP.
	dbConn, err := db.ConnectAndMigrate(cfg.SessionDSN)
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}

	sessions := session.NewStore(dbConn, cfg.SessionSecret, cfg.SessionTTL)

	opts := []apiclient.Option{apiclient.WithTimeout(cfg.RequestTimeout)}
	if cfg.Tenant != "" {
		opts = append(opts, apiclient.WithTenant(cfg.Tenant))
	}
	api := apiclient.New(cfg.BaseURL, opts...)

	refreshURL := cfg.BaseURL + "/" + cfg.FacturesVersion + "/auth/refresh"
	authMgr := auth.NewManager(refreshURL, &http.Client{Timeout: cfg.RequestTimeout}, sessions)

	// Audit batches authenticate with the service token, not with a user's
	// session pair; the backend attributes events by the actor field.
	auditAPI := api
	if cfg.AuditToken != "" {
		auditAPI = api.WithTokens(auth.StaticToken(cfg.AuditToken))
	} else {
		log.Println("AUDIT_TOKEN not set, audit batches will post unauthenticated")
	}
	recorder := audit.NewRecorder(audit.NewSender(auditAPI, cfg.AuditVersion))
	defer recorder.Close()

	deps := &handlers.Deps{
		API:      api,
		Auth:     authMgr,
		Sessions: sessions,
		Audit:    recorder,
		Cfg:      cfg,
	}

	// Drop expired sessions in the background.
	purgeDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := sessions.PurgeExpired(context.Background()); err != nil {
					log.Printf("Session purge failed: %v", err)
				} else if n > 0 {
					log.Printf("Purged %d expired sessions", n)
				}
			case <-purgeDone:
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(deps, dbConn),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (env=%s, api=%s)", cfg.Port, cfg.Env, cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	close(purgeDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}
