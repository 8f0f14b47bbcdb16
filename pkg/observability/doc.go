// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks, and graceful shutdown.
//
// # Logging
//
//	log := observability.NewLogger(logrus.InfoLevel, "json", os.Stdout)
//	observability.WithTraceContext(ctx, log).Info("entitlement issued")
//
// # Metrics
//
//	registry := observability.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(metrics.Middleware)
//	observability.RegisterMetricsEndpoint(healthMux, registry)
//
// Routes are labelled by their mux path template, for example
// /api/v1/orgs/{org}/entitlements/{featureType}.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// /healthz/live always answers 200. /healthz/ready answers 503 when the
// database is unreachable; a Redis outage only degrades the status.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "skillgate",
//		Insecure:    true,
//		SampleRatio: 0.1,
//	}, log)
//	defer observability.ShutdownOTel(ctx, providers, log)
//
// # Shutdown
//
//	sm := observability.NewShutdownManager(log, 30*time.Second, apiServer, healthServer)
//	sm.RegisterShutdownFunc(func(ctx context.Context) error { return db.Close() })
//	sm.WaitForShutdown(ctx)
package observability
