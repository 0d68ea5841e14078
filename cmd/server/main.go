package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/eyedraw/eyedraw/internal/auth"
	"github.com/eyedraw/eyedraw/internal/collab"
	"github.com/eyedraw/eyedraw/internal/config"
	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/drawings"
	mw "github.com/eyedraw/eyedraw/internal/middleware"
	"github.com/eyedraw/eyedraw/internal/page"
	"github.com/eyedraw/eyedraw/internal/shapes"
	"github.com/eyedraw/eyedraw/internal/store"
	"github.com/eyedraw/eyedraw/internal/syncer"
)

// Pages with this prefix are open to anonymous users.
const playgroundPrefix = "page_playground"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := shapes.Catalog()
	widgets, tables, err := layout(cfg)
	if err != nil {
		return err
	}
	for _, w := range widgets {
		if err := w.SyncArray.Validate(catalog); err != nil {
			return fmt.Errorf("widget %s: %w", w.DrawingName, err)
		}
	}
	if err := tables.Validate(catalog); err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	registry := page.NewRegistry(ctx, page.RegistryConfig{
		Widgets: widgets,
		Tables:  tables,
		Store:   st,
		Catalog: catalog,
		Delay:   cfg.AutosaveDelay,
		Logger:  slog.Default(),
	})

	hub := collab.NewHub(registry)
	go hub.Run()

	drawingHandler := drawings.NewHandler(drawings.NewService(registry, st))

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	drawingHandler.Routes(api)

	r.HandleFunc("/ws/page/{pageId}", hub.ServeWS(identify(authService), cfg.Origins()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the hub first so open pages flush their drawings
	slog.Info("saving open pages...")
	hub.Stop(shutdownCtx)
	if err := registry.Close(shutdownCtx); err != nil {
		slog.Error("close pages", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// layout loads the widget layout and optional sync overrides.
func layout(cfg *config.Config) ([]controller.Properties, syncer.PageTable, error) {
	var (
		widgets []controller.Properties
		err     error
	)
	if cfg.WidgetsPath != "" {
		widgets, err = controller.LoadProperties(cfg.WidgetsPath)
	} else {
		widgets, err = controller.DefaultProperties()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load widgets: %w", err)
	}

	var tables syncer.PageTable
	if cfg.SyncTablePath != "" {
		tables, err = syncer.LoadTable(cfg.SyncTablePath)
		if err != nil {
			return nil, nil, fmt.Errorf("load sync table: %w", err)
		}
	}
	return widgets, tables, nil
}

func identify(authSvc *auth.Service) collab.Identify {
	return func(r *http.Request, pageID string) (collab.Identity, error) {
		token := r.URL.Query().Get("token")
		if token == "" {
			if strings.HasPrefix(pageID, playgroundPrefix) {
				return collab.Identity{UserID: "anon-" + uuid.New().String()[:8], DisplayName: "Anonymous"}, nil
			}
			return collab.Identity{}, errors.New("missing token")
		}

		userID, err := authSvc.ValidateToken(token)
		if err != nil {
			return collab.Identity{}, errors.New("invalid token")
		}
		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			return collab.Identity{}, errors.New("user not found")
		}
		return collab.Identity{UserID: user.ID, DisplayName: user.DisplayName}, nil
	}
}
