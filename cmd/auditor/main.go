package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/auditor"
	"github.com/from2future/poker-tracker/internal/bootstrap"
	"github.com/from2future/poker-tracker/pkg/config"
	"github.com/from2future/poker-tracker/pkg/events"
	"github.com/from2future/poker-tracker/pkg/server"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := bootstrap.Logger(cfg, "auditor")
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	if !cfg.EventsEnabled() {
		l.Error("auditor needs kafka", errors.New("kafka.brokers is empty"))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect the store
	st, err := bootstrap.OpenStore(ctx, cfg, l)
	if err != nil {
		l.Error("failed to open store", err)
		os.Exit(1)
	}
	defer st.Close()

	// 4. Initialize consumer
	consumer := events.NewKafkaConsumer(bootstrap.EventsConfig(cfg))

	// 5. Create service
	svc := auditor.NewService(l, consumer, st, bootstrap.DashboardOptions(cfg))
	defer svc.Shutdown()

	// 6. Start observability server
	obsServer := server.New(cfg.Server.MetricsAddr, l, st.Ping)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	// 7. Start service
	l.Info("auditor starting", zap.String("topic", cfg.Kafka.Topic), zap.String("group", cfg.Kafka.GroupID))
	if err := svc.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("auditor stopping")
		} else {
			l.Error("auditor failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)
}
