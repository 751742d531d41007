package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nwah/hudnav-server/config"
	"github.com/nwah/hudnav-server/nav"
	"github.com/nwah/hudnav-server/session"
	"github.com/nwah/hudnav-server/settings"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML or YAML config file")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set nav config for the nav package
	nav.SetConfig(cfg.Nav)

	if cfg.Settings.Path != "" {
		store, err := settings.OpenSQLite(cfg.Settings.Path)
		if err != nil {
			log.Fatalf("Failed to open settings store: %v", err)
		}
		defer store.Close()
		nav.SetSettingsStore(store)
	}

	nav.SetSessions(session.NewManager(nav.Router{Mode: nav.ModeAuto}, cfg.Session()))

	mux := http.NewServeMux()

	// Register handlers under /nav path
	mux.HandleFunc("/nav/geocode", nav.HandleGeocode)
	mux.HandleFunc("/nav/route", nav.HandleRoute)
	mux.HandleFunc("POST /nav/sessions", nav.HandleCreateSession)
	mux.HandleFunc("GET /nav/sessions/{id}", nav.HandleGetSession)
	mux.HandleFunc("DELETE /nav/sessions/{id}", nav.HandleDeleteSession)
	mux.HandleFunc("POST /nav/sessions/{id}/fix", nav.HandleSessionFix)
	mux.HandleFunc("POST /nav/sessions/{id}/navigate", nav.HandleSessionNavigate)
	mux.HandleFunc("POST /nav/sessions/{id}/skip", nav.HandleSessionSkip)
	mux.HandleFunc("POST /nav/sessions/{id}/exit", nav.HandleSessionExit)
	mux.HandleFunc("POST /nav/sessions/{id}/units", nav.HandleSessionUnits)
	mux.HandleFunc("GET /nav/sessions/{id}/stream", nav.HandleSessionStream)
	mux.HandleFunc("/settings", nav.HandleSettings)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
	log.Printf("Server stopped")
}
