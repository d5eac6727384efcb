package main

import (
	"context"
	"github.com/ariefcatur/nexus-inventory/internal/config"
	"github.com/ariefcatur/nexus-inventory/internal/httpx"
	kafkax "github.com/ariefcatur/nexus-inventory/internal/kafka"
	"github.com/ariefcatur/nexus-inventory/internal/memstore"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/ariefcatur/nexus-inventory/internal/postgres"
	"github.com/ariefcatur/nexus-inventory/internal/redisx"
	log "github.com/sirupsen/logrus"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// store is everything the API needs from persistence.
type store interface {
	orders.UnitOfWork
	orders.OrderReader
	orders.CatalogReader
	orders.StatsReader
	notify.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	cfg.SetupLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var st store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memstore.New()
		if _, err := postgres.Seed(ctx, mem); err != nil {
			log.WithError(err).Fatal("seed memory store")
		}
		st = mem
		log.Warn("using in-memory store; data is lost on exit")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresPool)
		if err != nil {
			log.WithError(err).Fatal("db connect")
		}
		defer db.Close()
		st = &postgres.Store{DB: db}
	}

	svc := &orders.Service{UoW: st, Reader: st, Name: cfg.ServiceName}
	oh := &httpx.OrdersHandler{Orders: svc, Timeout: cfg.OrderTimeout}
	nh := &httpx.NotificationsHandler{Store: st}
	ch := &httpx.CatalogHandler{Catalog: st, Stats: st}
	if cfg.JWTSecret != "" {
		auth := &httpx.Authenticator{Secret: []byte(cfg.JWTSecret)}
		oh.Auth, nh.Auth, ch.Auth = auth, auth, auth
	}

	// Redis (optional)
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; idempotency keys and order cache disabled")
		} else {
			defer rdb.Close()
			oh.Idem = &redisx.Idempotency{RDB: rdb}
			oh.Cache = &redisx.OrderCache{RDB: rdb}
		}
	}

	// Kafka producer (optional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024)
		prod.Start()
		svc.Events = &kafkax.Emitter{P: prod}
	}

	router := httpx.NewRouter()
	oh.Register(router)
	nh.Register(router)
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		// handlers still running get ErrClosed from the producer below
		log.WithError(err).Warn("http shutdown incomplete")
	}
	if prod != nil {
		prod.Close()      // later publishes return kafkax.ErrClosed
		prod.WaitClosed() // drain
	}
}
