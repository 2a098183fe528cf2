package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/api"
	"github.com/from2future/poker-tracker/internal/auth"
	"github.com/from2future/poker-tracker/internal/bootstrap"
	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/state"
	"github.com/from2future/poker-tracker/pkg/config"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := bootstrap.Logger(cfg, "server")
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("server initializing", zap.String("env", cfg.Environment), zap.String("store", cfg.Store.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect the store
	st, err := bootstrap.OpenStore(ctx, cfg, l)
	if err != nil {
		l.Error("failed to open store", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := bootstrap.Migrate(ctx, st); err != nil {
		l.Error("failed to migrate", err)
		os.Exit(1)
	}

	// 4. Events
	publisher := bootstrap.Publisher(cfg)
	defer publisher.Close()

	// 5. State
	container := state.New(st, publisher, l)
	if err := container.Refresh(ctx); err != nil {
		l.Error("initial refresh failed", err)
		os.Exit(1)
	}

	// 6. HTTP API. The login lives in a browser cookie, so the gate's own
	// flag only matters to the terminal client.
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.New(api.Deps{
		State:        container,
		Gate:         auth.NewGate(st, &auth.MemoryFlagStore{}, l),
		Importer:     importer.NewRunner(st, container, l, bootstrap.ImportOptions(cfg)),
		Store:        st,
		Logger:       l,
		Dashboard:    bootstrap.DashboardOptions(cfg),
		SecureCookie: cfg.Environment == "production",
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		l.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server shutdown failed", err)
	}
}
