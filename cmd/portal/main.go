package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kundenportal/internal/app"
	"kundenportal/internal/config"
	"kundenportal/internal/crm"
	"kundenportal/internal/database"
	"kundenportal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sessions, err := openSessions(cfg)
	if err != nil {
		log.Fatal(err)
	}

	client := crm.NewClient(cfg.CRMBaseURL, crm.WithAPIKey(cfg.CRMAPIKey), crm.WithTimeout(cfg.CRMTimeout))
	portal := app.New(cfg, client, sessions)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           portal.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("portal listening addr=%s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server failed: %v", err)
	case sig := <-stop:
		log.Printf("portal shutting down signal=%s", sig)
	}

	// running confirmations are detached from their requests; give them time to finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.CRMTimeout*3)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	portal.Quotes.Wait()
}

func openSessions(cfg *config.PortalConfig) (session.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("portal sessions kept in memory")
		return session.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := session.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}
