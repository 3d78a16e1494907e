package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/LavaJover/shvark-trade-client/internal/client"
	"github.com/LavaJover/shvark-trade-client/internal/config"
	delivery "github.com/LavaJover/shvark-trade-client/internal/delivery/http"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/trade"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/tradesync"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init journal database
	db := postgres.MustInitDB(cfg)
	if cfg.JournalDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(db, cfg.JournalDB.MigrationsPath); err != nil {
			log.Fatalf("failed to run journal migrations: %v", err)
		}
	}
	journal, err := repository.NewDefaultSnapshotJournal(db)
	if err != nil {
		log.Fatalf("failed to init snapshot journal: %v", err)
	}

	// Init metrics
	syncMetrics := metrics.NewTradeSyncMetrics()

	// Init order service client (poll source + actions)
	orderClient, err := client.NewHTTPOrderClient(fmt.Sprintf("http://%s:%s", cfg.OrderService.Host, cfg.OrderService.Port))
	if err != nil {
		log.Fatalf("failed to init order service client: %v", err)
	}

	// Init push source
	brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
	pushSource := kafka.NewKafkaPushSource(brokers, cfg.KafkaService.Topic, cfg.KafkaService.GroupID, syncMetrics)
	pushSource.Start(ctx)
	defer pushSource.Close()

	// Init trade manager
	syncConfig := tradesync.Config{
		BaseInterval:  cfg.SyncConfig.BaseInterval,
		MinSpacing:    cfg.SyncConfig.MinSpacing,
		MaxInterval:   cfg.SyncConfig.MaxInterval,
		BackoffFactor: cfg.SyncConfig.BackoffFactor,
		PollTimeout:   cfg.SyncConfig.PollTimeout,
	}
	manager := trade.NewManager(ctx, orderClient, pushSource, journal, syncMetrics, syncConfig, cfg.Party)
	defer manager.CloseAll()

	// HTTP API for the UI
	handler := delivery.NewTradeHandler(manager, journal)
	router := delivery.NewRouter(handler)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("trade client started", "addr", server.Addr, "party", cfg.Party)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return server.Shutdown(context.Background())
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("trade client stopped: %v", err)
	}
}
