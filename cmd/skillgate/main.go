package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/skillgate/pkg/api"
	"github.com/platinummonkey/skillgate/pkg/assessments"
	"github.com/platinummonkey/skillgate/pkg/config"
	"github.com/platinummonkey/skillgate/pkg/entitlements"
	"github.com/platinummonkey/skillgate/pkg/gating"
	"github.com/platinummonkey/skillgate/pkg/httputil"
	"github.com/platinummonkey/skillgate/pkg/observability"
	"github.com/platinummonkey/skillgate/pkg/skills"
	"github.com/platinummonkey/skillgate/pkg/skills/builtin"
	"github.com/platinummonkey/skillgate/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)
	log.WithField("version", version).Info("Starting skillgate")

	if err := run(context.Background(), cfg, log); err != nil {
		log.WithError(err).Fatal("skillgate exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
		PremiumBundle:  cfg.Plugins.PremiumBundle,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	db, err := postgres.Open(ctx, postgres.ConnectionConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
		Timeout:  cfg.Database.Timeout,
	})
	if err != nil {
		return err
	}
	log.Info("Connected to PostgreSQL")

	if err := entitlements.RunMigrations(ctx, db, log); err != nil {
		db.Close()
		return err
	}
	assessmentRepo := assessments.NewPostgresRepository(db)
	if err := assessmentRepo.EnsureSchema(ctx); err != nil {
		db.Close()
		return err
	}

	var redisClient *redis.Client
	var publisher entitlements.Publisher = entitlements.NopPublisher{}
	if cfg.Entitlements.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(ctx, cfg.Entitlements.RedisURL)
		if err != nil {
			db.Close()
			return err
		}
		publisher = entitlements.NewRedisPublisher(redisClient, cfg.Entitlements.EventsChannel)
		log.WithField("channel", cfg.Entitlements.EventsChannel).Info("Publishing entitlement events to Redis")
	}

	registry := observability.NewRegistry()
	observability.RegisterDBStats(registry, db, "skillgate")
	httpMetrics := observability.NewMetrics(registry)
	entitlementMetrics := entitlements.NewMetrics(registry)
	skillMetrics := skills.NewMetrics(registry)

	// Skills
	skillRegistry := skills.NewRegistry(log)
	source, err := buildPluginSource(ctx, cfg.Plugins, log)
	if err != nil {
		db.Close()
		return err
	}
	loader := skills.NewLoader(skillRegistry, source, log,
		skills.WithDefaultBundle(cfg.Plugins.PremiumBundle),
		skills.WithMetrics(skillMetrics),
	)
	if _, err := loader.RegisterStatic(ctx, builtin.Skills()...); err != nil {
		db.Close()
		return fmt.Errorf("failed to register built-in skills: %w", err)
	}
	if ids, err := loader.LoadDefaultPremiumBundle(ctx); err != nil {
		log.WithError(err).Warn("Premium bundle failed to load, continuing with built-in skills")
	} else if len(ids) == 0 {
		log.WithField("bundle", cfg.Plugins.PremiumBundle).Info("No premium bundle installed, running with built-in skills only")
	} else {
		log.WithField("skills", ids).Info("Premium bundle loaded")
	}

	if cfg.Plugins.Watch {
		watcher, err := skills.NewWatcher(loader, cfg.Plugins.ManifestDirs, log)
		if err != nil {
			db.Close()
			return err
		}
		go func() {
			defer observability.RecoverPanic(log, "plugin watcher")
			if err := watcher.Run(ctx); err != nil {
				log.WithError(err).Error("Plugin watcher stopped")
			}
		}()
	}

	// Entitlements
	store := entitlements.NewCachedStore(entitlements.NewPostgresStore(db), cfg.Entitlements.CacheSize, cfg.Entitlements.CacheTTL)
	resolver := entitlements.NewResolver(store, log, entitlements.WithResolverMetrics(entitlementMetrics))
	admin := entitlements.NewAdmin(store, log,
		entitlements.WithPublisher(publisher),
		entitlements.WithAdminMetrics(entitlementMetrics),
	)
	gate := gating.NewGate(resolver, skillRegistry, log)
	assessmentService := assessments.NewService(assessmentRepo, gate, skillRegistry, log)

	router := api.NewRouter(
		api.NewEntitlementHandlers(admin, resolver, log),
		api.NewSkillHandlers(skillRegistry, loader, log),
		api.NewAssessmentHandlers(assessmentService, log),
	)
	if cfg.Observability.MetricsEnabled {
		router.Use(httpMetrics.Middleware)
	}

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(log),
		httputil.RecoveryMiddleware(log),
		httputil.MaxBytesMiddleware(1<<20),
	)(router)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(handler, "skillgate"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux(db, redisClient, registry, cfg.Observability.MetricsEnabled),
	}

	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return observability.ShutdownOTel(ctx, otelProviders, log)
	})

	serve(log, apiServer, "API", cancel)
	serve(log, healthServer, "health", cancel)

	return shutdown.WaitForShutdown(ctx)
}

// serve starts srv in the background. A listener failure cancels the
// process context so shutdown begins.
func serve(log *logrus.Logger, srv *http.Server, name string, cancel context.CancelFunc) {
	go func() {
		defer observability.RecoverPanic(log, name+" server")
		log.WithField("addr", srv.Addr).Infof("Starting %s server", name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Errorf("%s server failed", name)
			cancel()
		}
	}()
}

func healthMux(db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry, metrics bool) *http.ServeMux {
	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, observability.NewHealthChecker(db, redisClient, version))
	if metrics {
		observability.RegisterMetricsEndpoint(mux, registry)
	}
	return mux
}

// buildPluginSource chains every configured bundle location. Manifests on
// disk win over shared objects, which win over S3.
func buildPluginSource(ctx context.Context, cfg config.PluginConfig, log *logrus.Logger) (skills.PluginSource, error) {
	var sources []skills.PluginSource
	if len(cfg.ManifestDirs) > 0 {
		sources = append(sources, skills.NewManifestSource(cfg.ManifestDirs, log))
	}
	if cfg.SharedObjectDir != "" {
		sources = append(sources, skills.NewSharedObjectSource(cfg.SharedObjectDir, log))
	}
	if cfg.S3Bucket != "" {
		s3Source, err := skills.NewS3ManifestSource(ctx, skills.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3UsePathStyle,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		}, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s3Source)
	}
	return skills.NewChainSource(log, sources...), nil
}
