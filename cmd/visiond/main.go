// Command visiond is the process entry point: it wires the type registry's
// built-in handlers, the Postgres-backed camera resolver, the stream
// adapter, and the operational HTTP surface (/health, /metrics, /stream)
// around the singleton Broker, then blocks serving until interrupted.
package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"visionguard/internal/broker"
	"visionguard/internal/config"
	"visionguard/internal/handlers"
	"visionguard/internal/repository/postgres"
	"visionguard/internal/resolver"
	"visionguard/internal/streamadapter"
	"visionguard/pkg/clients"
	pkgconfig "visionguard/pkg/config"
	"visionguard/pkg/logging"
	"visionguard/pkg/monitoring"
	"visionguard/pkg/server"
	"visionguard/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("visiond")
	pkgconfig.LoadEnv(logger)

	logger.Info("starting visiond (vision-security broker core)")

	cfg := config.Load()

	db := postgres.MustConnect(cfg.Database, logger)
	defer db.Close()

	repo := postgres.New(db)

	cb := clients.NewCircuitBreaker(clients.DefaultCircuitBreakerConfig())
	camResolver := resolver.New(repo, cfg.Resolver, cb, logger)

	br := broker.Instance(logger, cfg.AllowHandlerOverride, map[broker.MessageType]broker.Handler{
		"direction_result": handlers.NewDirectionHandler(),
		"angle_value":      handlers.NewAngleHandler(),
		"ai_alert":         handlers.NewAIAlertHandler(),
	})
	br.SetResolver(camResolver)

	adapter := streamadapter.New(br, camResolver, logger)
	if err := adapter.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("failed to start stream adapter")
	}
	go adapter.Hub().Run()

	healthChecker := monitoring.NewHealthChecker("visiond", version.Version)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("configuration", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.Database.URL,
	}))

	metricsCollector := monitoring.NewMetricsCollector("visiond", version.Version, version.GitCommit)
	subscriberGauge := metricsCollector.NewGauge(
		"broker_subscribers", "Current subscriber count per message type", []string{"type"},
	)
	statsGauge := metricsCollector.NewGauge(
		"broker_messages_total", "Cumulative broker message counters", []string{"outcome"},
	)
	go reportBrokerMetrics(br, statsGauge, subscriberGauge)

	router := server.SetupServiceRouter(logger, "visiond", healthChecker, metricsCollector)
	router.GET("/stream", func(c *gin.Context) {
		adapter.Hub().ServeWS(c.Writer, c.Request)
	})

	if err := server.Start(cfg.ServerConfig(), router, logger); err != nil {
		logger.WithError(err).Fatal("server stopped with error")
	}

	br.Shutdown()
	logger.Info("visiond stopped")
}

// reportBrokerMetrics polls the broker's statistics snapshot and subscriber
// counts on a fixed interval and mirrors them into Prometheus gauges; the
// broker itself has no Prometheus dependency (C7 is a plain atomic-counter
// snapshot per spec.md §4.7), so the translation lives at the process edge.
func reportBrokerMetrics(br *broker.Broker, statsGauge, subscriberGauge *prometheus.GaugeVec) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		snap := br.Stats()
		statsGauge.WithLabelValues("published").Set(float64(snap.MessagesPublished))
		statsGauge.WithLabelValues("succeeded").Set(float64(snap.MessagesSucceeded))
		statsGauge.WithLabelValues("failed").Set(float64(snap.MessagesFailed))

		for _, t := range br.ListTypes() {
			subscriberGauge.WithLabelValues(string(t)).Set(float64(br.SubscriberCount(t)))
		}
	}
}
