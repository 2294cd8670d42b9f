package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "driftbase.gg/internal/persistence/log"
	"driftbase.gg/internal/persistence/profiledb"
	"driftbase.gg/internal/protocol"
	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/game"
	"driftbase.gg/internal/sim/tuning"
	"driftbase.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the profile database (profiles live in memory only)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var store *profiledb.Store
	if !*disableDB {
		store, err = profiledb.Open(filepath.Join(*dataDir, "profiles.db"))
		if err != nil {
			logger.Fatalf("open profile db: %v", err)
		}
		defer store.Close()
		if err := store.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("catalog index: %v", err)
		}
	}

	audit := persistlog.NewAuditLogger(*dataDir)
	defer audit.Close()

	var g *game.Game
	if store != nil {
		g = game.New(cats, tune, logger, store)
	} else {
		g = game.New(cats, tune, logger, nil)
	}
	g.SetAudit(func(ev protocol.Event) {
		if err := audit.WriteEvent(ev); err != nil {
			logger.Printf("audit: %v", err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic tick: hideout passes, flea expiries, trader refreshes.
	go func() {
		ticker := time.NewTicker(time.Duration(tune.TickSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Tick()
			}
		}
	}()

	wsServer := ws.NewServer(g, tune, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s (configs=%s data=%s)", *addr, *configDir, *dataDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("serve: %v", err)
	}
	logger.Printf("shutdown complete")
}
