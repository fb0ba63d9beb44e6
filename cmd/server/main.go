package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"verdeck/internal/document"
	"verdeck/internal/jwtauth"
	"verdeck/internal/notification"
	"verdeck/internal/platform/config"
	"verdeck/internal/platform/httpserver"
	"verdeck/internal/platform/logger"
	platformredis "verdeck/internal/platform/redis"
	httptransport "verdeck/internal/transport/http"
	"verdeck/internal/verification/handler"
	vmetrics "verdeck/internal/verification/metrics"
	"verdeck/internal/verification/service"
	entitystore "verdeck/internal/verification/store/entity"
	"verdeck/internal/verification/token"
	"verdeck/pkg/platform/audit"
	"verdeck/pkg/platform/audit/relay"
	auditmemory "verdeck/pkg/platform/audit/store/memory"
	auditpostgres "verdeck/pkg/platform/audit/store/postgres"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without a DSN the process runs entirely in
	// memory, which is how the development loop and most tests run.
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		entities    service.EntityStore
		records     document.RecordStore
		auditStore  audit.Store
		storeTx     service.StoreTx
		auditSource *sql.DB
	)
	if db != nil {
		entities = entitystore.NewPostgres(db)
		records = document.NewPostgresRecordStore(db)
		auditStore = auditpostgres.New(db)
		storeTx = service.NewPostgresStoreTx(db)
		auditSource = db
	} else {
		entities = entitystore.NewInMemory()
		records = document.NewInMemoryRecordStore()
		auditStore = auditmemory.NewInMemoryStore()
		storeTx = service.NewInMemoryStoreTx()
	}

	var tokenStore token.Store
	if redisClient != nil {
		tokenStore = token.NewRedisStore(redisClient.Client)
	} else {
		tokenStore = token.NewInMemoryStore()
	}
	tokens, err := token.NewManager(tokenStore, cfg.TokenTTL)
	if err != nil {
		log.Error("configure token manager", "error", err)
		os.Exit(1)
	}

	var blobs document.BlobStore
	if db != nil {
		blobs, err = document.NewFilesystemBlobStore(cfg.BlobRoot)
		if err != nil {
			log.Error("prepare blob root", "error", err)
			os.Exit(1)
		}
	} else {
		blobs = document.NewInMemoryBlobStore()
	}

	engine := service.New(
		entities,
		records,
		blobs,
		document.DefaultRequiredSets(),
		tokens,
		auditStore,
		notification.NewLogNotifier(log),
		service.WithLogger(log),
		service.WithMetrics(vmetrics.New()),
		service.WithTx(storeTx),
	)

	jwtService := jwtauth.NewService(cfg.JWTSigningKey, "verdeck", "verdeck-api")

	router := httptransport.NewRouter(
		handler.New(engine, log),
		httptransport.Options{
			Validator:  jwtauth.NewMiddlewareAdapter(jwtService),
			AdminToken: cfg.AdminToken,
			Logger:     log,
			Health: func(r chi.Router) {
				r.Get("/healthz/ready", func(w http.ResponseWriter, req *http.Request) {
					if db != nil {
						if err := db.PingContext(req.Context()); err != nil {
							w.WriteHeader(http.StatusServiceUnavailable)
							return
						}
					}
					if redisClient != nil {
						if err := redisClient.Health(req.Context()); err != nil {
							w.WriteHeader(http.StatusServiceUnavailable)
							return
						}
					}
					w.WriteHeader(http.StatusNoContent)
				})
			},
		},
	)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting verdeck", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The audit relay ships committed audit entries to Kafka. It only runs
	// when both Postgres and brokers are configured.
	if auditSource != nil && len(cfg.KafkaBrokers) > 0 {
		producer, err := relay.NewKafkaProducer(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		auditRelay := relay.New(auditSource, producer, log)
		group.Go(func() error {
			return auditRelay.Run(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
