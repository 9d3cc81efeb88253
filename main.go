package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"card-duel-server/api"
	"card-duel-server/auth"
	"card-duel-server/config"
	"card-duel-server/loghandler"
	"card-duel-server/storage"
	"card-duel-server/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, cfg.SlogLevel())))
	if envErr != nil {
		slog.Info("no .env file found; using environment variables", "tag", "main")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()

	var validator ws.TokenValidator
	if cfg.NeonAuthBaseURL == "" {
		slog.Warn("NEON_AUTH_BASE_URL is not set; clients choose their own user id", "tag", "main")
	} else {
		v, err := auth.NewValidator(ctx, cfg.NeonAuthBaseURL)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		validator = v
		slog.Info("auth configured", "tag", "main", "baseURL", cfg.NeonAuthBaseURL)
	}

	slog.Info("configuration", "tag", "main",
		"port", cfg.WSPort, "phaseTimeoutSec", cfg.PhaseTimeoutSec, "deckSize", cfg.DeckSize,
		"openingHand", cfg.OpeningHandSize, "championHP", cfg.ChampionHP, "baseGold", cfg.BaseGold,
		"goldGrowth", cfg.GoldGrowthPerTurn, "maxGold", cfg.MaxGold)

	hub := ws.NewHub(cfg, catalog, validator)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	api.NewHandler(catalog, hub.Rooms, validator).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","rooms":%d,"queued":%d}`, hub.Rooms.Count(), hub.Matchmaker.Waiting())
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WSPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("card duel server listening", "tag", "main", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openCatalog prefers Postgres, then the JSON catalog file, then the
// built-in starter deck.
func openCatalog(ctx context.Context, cfg *config.Config) (storage.Catalog, error) {
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if store != nil {
		return store, nil
	}

	c, err := storage.LoadCatalogFile(cfg.CatalogPath)
	switch {
	case err == nil:
		slog.Info("card catalog loaded", "tag", "main", "path", cfg.CatalogPath)
		return c, nil
	case errors.Is(err, os.ErrNotExist):
		slog.Info("no catalog file; using the starter deck", "tag", "main", "path", cfg.CatalogPath)
		return storage.StarterCatalog(), nil
	default:
		return nil, err
	}
}
