package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	accesscodeservice "sayit/internal/accesscode/service"
	accesscodestore "sayit/internal/accesscode/store"
	actorservice "sayit/internal/actor/service"
	actorstore "sayit/internal/actor/store"
	agencystore "sayit/internal/agency/store"
	"sayit/internal/attachment"
	"sayit/internal/audit"
	complaintservice "sayit/internal/complaint/service"
	complaintstore "sayit/internal/complaint/store"
	notifservice "sayit/internal/notification/service"
	notifstore "sayit/internal/notification/store"
	"sayit/internal/notifier"
	"sayit/internal/platform/config"
	"sayit/internal/platform/httpserver"
	"sayit/internal/platform/kafka"
	"sayit/internal/platform/logger"
	"sayit/internal/platform/metrics"
	"sayit/internal/platform/redis"
	"sayit/internal/token"
	"sayit/internal/token/revocation"
	httptransport "sayit/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores. With SAYIT_POSTGRES_URL unset everything runs in memory, which
	// is the local-development mode.
	var (
		accounts      actorstore.AccountStore
		anonymous     actorstore.AnonymousStore
		recovery      accesscodestore.RecoveryStore
		notifications notifstore.Store
		complaints    complaintstore.Store
	)
	agencies := agencystore.NewInMemoryStore()

	var pool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("postgres pool: %w", err)
		}
		defer pool.Close()

		for _, migrate := range []func(context.Context, *pgxpool.Pool) error{
			actorstore.MigrateAccounts,
			accesscodestore.MigrateRecoveryCodes,
			notifstore.Migrate,
			complaintstore.Migrate,
		} {
			if err := migrate(ctx, pool); err != nil {
				return err
			}
		}

		accounts = actorstore.NewPostgresAccountStore(pool)
		anonymous = actorstore.NewPostgresAnonymousStore(pool)
		recovery = accesscodestore.NewPostgresRecoveryStore(pool)
		notifications = notifstore.NewPostgresStore(pool)
		complaints = complaintstore.NewPostgresStore(pool)
	} else {
		accounts = actorstore.NewInMemoryAccountStore()
		anonymous = actorstore.NewInMemoryAnonymousStore()
		recovery = accesscodestore.NewInMemoryRecoveryStore()
		memNotifications := notifstore.NewInMemoryStore()
		notifications = memNotifications
		complaints = complaintstore.NewInMemoryStore(memNotifications)
	}

	if err := agencystore.Seed(ctx, agencies); err != nil {
		return fmt.Errorf("seed agencies: %w", err)
	}

	// Token revocation: redis when configured, postgres as the restart-proof
	// fallback, in-process memory otherwise.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	var (
		trl   token.RevocationList
		pgTRL *revocation.PostgresTRL
	)
	switch {
	case redisClient != nil:
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
	case cfg.PostgresURL != "":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("postgres trl: %w", err)
		}
		defer db.Close()
		pgTRL = revocation.NewPostgresTRL(db)
		if err := pgTRL.Migrate(ctx); err != nil {
			return err
		}
		trl = pgTRL
	default:
		trl = revocation.NewMemoryTRL()
	}

	// Audit pipeline: events fan through the in-process publisher into kafka
	// when brokers are configured, a memory sink otherwise.
	kafkaClient, err := kafka.New(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	var sink audit.Sink
	if kafkaClient != nil {
		defer kafkaClient.Close()
		sink = audit.NewKafkaSink(kafkaClient, cfg.Kafka.AuditTopic, log)
	} else {
		sink = audit.NewMemorySink()
	}
	auditPub := audit.NewPublisher(log)
	auditWorker := audit.NewWorker(auditPub, sink, log)

	var mailer notifier.Notifier
	if cfg.NotifierMode == "noop" {
		mailer = notifier.NoopNotifier{}
	} else {
		mailer = notifier.WithRetry(notifier.NewLogNotifier(log))
	}

	actorSvc := actorservice.NewService(accounts, anonymous, log, m)
	codeSvc := accesscodeservice.NewService(anonymous, recovery, actorSvc, mailer, log)
	tokenSvc := token.NewService(cfg.JWTSigningKey, cfg.Tokens, trl, actorSvc)
	dispatcher := notifservice.NewDispatcher(notifications, log, m)
	engine := complaintservice.NewEngine(complaints, agencies, actorSvc, mailer, auditPub, log, m)

	handler := httptransport.NewHandler(
		actorSvc, codeSvc, tokenSvc, engine, dispatcher,
		agencies, attachment.NewFakeStore(), auditPub, log,
	)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Hourly sweep of expired notifications and, on the postgres revocation
	// list, dead token entries. Purely hygienic; correctness never depends on
	// when it runs.
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				dispatcher.Sweep(ctx)
				if pgTRL != nil {
					if _, err := pgTRL.PurgeExpired(ctx); err != nil {
						log.Warn("revocation purge failed", "error", err)
					}
				}
			}
		}
	})

	// In-flight handlers may still publish audit events until Shutdown
	// returns, so the server stops before the publisher closes.
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		auditPub.Close()
		return err
	})

	return g.Wait()
}
