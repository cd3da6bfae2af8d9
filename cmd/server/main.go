// Command server wires the provisioning service: Postgres-backed stores,
// the four credential kinds, the audit pipeline and the HTTP surface.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"onward/internal/audit"
	"onward/internal/auth"
	credmetrics "onward/internal/credential/metrics"
	credmodels "onward/internal/credential/models"
	"onward/internal/credential/revocation"
	credsvc "onward/internal/credential/service"
	credstore "onward/internal/credential/store"
	empmetrics "onward/internal/employee/metrics"
	empsvc "onward/internal/employee/service"
	empstore "onward/internal/employee/store"
	"onward/internal/onboarding"
	orgsvc "onward/internal/organization/service"
	orgstore "onward/internal/organization/store"
	"onward/internal/platform/config"
	"onward/internal/platform/httpserver"
	"onward/internal/platform/logger"
	"onward/internal/platform/postgres"
	platformredis "onward/internal/platform/redis"
	transport "onward/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: services emit into a channel; the worker drains it
	// into Kafka, or into memory when no brokers are configured.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn("no kafka brokers configured, audit events stay in memory")
		sink = audit.NewMemorySink()
	}
	inbox := make(chan audit.Event, 1024)
	emitter := audit.NewChannelEmitter(inbox, log)
	worker := audit.NewWorker(sink, inbox, log)

	credMetrics := credmetrics.New()
	newCredential := func(kind credmodels.Kind, defaultTTL time.Duration, opts ...credsvc.Option) *credsvc.Service {
		policy, err := credmodels.PolicyFor(kind)
		if err != nil {
			log.Error("unknown credential kind", "kind", kind, "error", err)
			os.Exit(1)
		}
		if defaultTTL != 0 {
			policy.DefaultTTL = defaultTTL
		}
		opts = append(opts,
			credsvc.WithMetrics(credMetrics),
			credsvc.WithAudit(emitter),
		)
		return credsvc.New(credstore.NewPostgres(pool, policy), policy, log, opts...)
	}

	var revocationOpts []credsvc.Option
	var revocations *revocation.RedisList
	if redisClient != nil {
		revocations = revocation.NewRedisList(redisClient.Client)
		revocationOpts = append(revocationOpts, credsvc.WithRevocationList(revocations))
	}

	setupCodes := newCredential(credmodels.KindSetupCode, cfg.SetupCodeTTL)
	magicLinks := newCredential(credmodels.KindMagicLink, cfg.MagicLinkTTL)
	refreshTokens := newCredential(credmodels.KindRefreshToken, cfg.RefreshTTL, revocationOpts...)
	apiKeys := newCredential(credmodels.KindAPIKey, 0, revocationOpts...)

	organizations := orgsvc.New(orgstore.NewPostgres(pool), log)
	employees := empsvc.New(empstore.NewPostgres(pool), log,
		empsvc.WithMetrics(empmetrics.New()),
		empsvc.WithAudit(emitter),
	)
	onboardingSvc := onboarding.New(empstore.NewPostgres(pool), log,
		onboarding.WithAudit(emitter),
	)

	jwtSvc := auth.NewJWTService(cfg.JWTSigningKey, "onward", "onward-api")
	authCfg := auth.Config{
		MagicLinks:    magicLinks,
		RefreshTokens: refreshTokens,
		APIKeys:       apiKeys,
		Organizations: organizations,
		Employees:     employees,
		JWT:           jwtSvc,
		AccessTTL:     cfg.AccessTokenTTL,
	}
	if revocations != nil {
		authCfg.Revocations = revocations
	}
	authSvc := auth.New(authCfg, log)

	handler := transport.NewHandler(transport.Config{
		Organizations: organizations,
		Employees:     employees,
		Onboarding:    onboardingSvc,
		SetupCodes:    setupCodes,
		Auth:          authSvc,
	}, log)
	router := transport.NewRouter(handler, jwtSvc)

	srv := httpserver.New(cfg.Addr, router)
	metricsSrv := httpserver.New(cfg.MetricsAddr, promhttp.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if merr := metricsSrv.Shutdown(shutdownCtx); err == nil {
			err = merr
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
