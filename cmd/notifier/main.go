package main

import (
	"context"
	"github.com/ariefcatur/nexus-inventory/internal/config"
	kafkax "github.com/ariefcatur/nexus-inventory/internal/kafka"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/ariefcatur/nexus-inventory/internal/postgres"
	"github.com/ariefcatur/nexus-inventory/internal/redisx"
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	cfg.SetupLogging()
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresPool)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	svc := &notify.Service{
		Store:       &postgres.Store{DB: db},
		ServiceName: cfg.ServiceName + "-notifier",
	}

	// Redis dedup (optional)
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; event dedup disabled")
		} else {
			defer rdb.Close()
			svc.Dedup = &redisx.Dedup{RDB: rdb}
		}
	}

	topics := []string{orders.TopicOrderCreated, orders.TopicStockLow}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topics, cfg.NotifierWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.WithFields(log.Fields{
			"group": cfg.NotifierGroup, "topics": topics, "workers": cfg.NotifierWorkers,
		}).Info("notifier consumer started")
		if err := cons.Start(ctx, svc.HandleMessage); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer...")
		cancel()
	case <-ctx.Done():
	}
	<-done
}
