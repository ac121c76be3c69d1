package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackd.org/internal/auth"
	"trackd.org/internal/config"
	"trackd.org/internal/httpapi"
	"trackd.org/internal/obs"
	"trackd.org/internal/store/pg"
	"trackd.org/internal/tracker"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("missing DSN: set TRACKD_PG_DSN")
	}

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	authSvc, err := auth.NewService(store, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	trackerSvc, err := tracker.NewService(store)
	if err != nil {
		log.Fatalf("tracker service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authSvc.EnsureCatalog(ctx); err != nil {
		cancel()
		log.Fatalf("ensure permission catalog: %v", err)
	}
	cancel()

	api := httpapi.New(authSvc, trackerSvc, httpapi.ReadyProbe{DB: store.DB()}, version,
		httpapi.WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting trackd-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
