package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	jwttoken "docverify/internal/jwt_token"
	"docverify/internal/platform/config"
	"docverify/internal/platform/httpserver"
	"docverify/internal/platform/kafka"
	"docverify/internal/platform/logger"
	httpmetrics "docverify/internal/platform/metrics"
	"docverify/internal/platform/postgres"
	"docverify/internal/platform/redis"
	httptransport "docverify/internal/transport/http"
	"docverify/internal/verification/authenticity"
	"docverify/internal/verification/consent"
	"docverify/internal/verification/encryption"
	"docverify/internal/verification/fraud"
	"docverify/internal/verification/handler"
	verificationmetrics "docverify/internal/verification/metrics"
	"docverify/internal/verification/models"
	"docverify/internal/verification/providers"
	"docverify/internal/verification/security"
	"docverify/internal/verification/security/ratelimit"
	"docverify/internal/verification/security/scanner"
	"docverify/internal/verification/service"
	"docverify/internal/verification/store"
)

const maxFingerprints = 100_000

// main wires configuration, infrastructure clients and the verification
// pipeline, then serves HTTP until SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional shared clients. Nil fields fall back to in-process
// implementations.
type infra struct {
	redis *redis.Client
	db    *sql.DB
	kafka *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

func connect(ctx context.Context, cfg *config.Config) (*infra, error) {
	i := &infra{}
	var err error
	if i.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if i.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		i.close()
		return nil, err
	}
	if i.kafka, err = kafka.New(ctx, cfg.Kafka); err != nil {
		i.close()
		return nil, err
	}
	return i, nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clients, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer clients.close()

	primary, trails, err := buildTrailStore(ctx, cfg, clients, log)
	if err != nil {
		return err
	}
	registry, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	routerCfg := providers.DefaultRouterConfig()
	routerCfg.Timeout = cfg.Providers.Timeout
	routerCfg.FallbackClass = fallbackClass(cfg.Providers.FallbackClass)
	router, err := providers.NewRouter(registry, routerCfg, providers.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build provider router: %w", err)
	}

	screener, err := buildScreener(cfg, clients, log)
	if err != nil {
		return err
	}

	var fingerprints fraud.FingerprintStore = fraud.NewInMemoryStore(cfg.Security.FingerprintTTL, maxFingerprints, nil)
	if clients.redis != nil {
		fingerprints = fraud.NewRedisStore(clients.redis, cfg.Security.FingerprintTTL)
	}
	detector, err := fraud.New(fingerprints, fraud.WithLogger(log))
	if err != nil {
		return err
	}

	sealer, err := encryption.NewSealer(cfg.EncryptionKeyBytes())
	if err != nil {
		return fmt.Errorf("build sealer: %w", err)
	}

	svc, err := service.New(
		screener,
		router,
		authenticity.New(authenticity.WithLogger(log), authenticity.WithFontAnalysis(), authenticity.WithLayoutAnalysis()),
		detector,
		sealer,
		trails,
		service.WithLogger(log),
		service.WithMetrics(verificationmetrics.New(reg)),
		service.WithConsentValidator(consent.NewValidator(consent.WithMaxAge(cfg.Security.ConsentMaxAge))),
		service.WithJurisdiction(cfg.Compliance.Jurisdiction),
		service.WithRetentionDays(cfg.Compliance.RetentionDays),
	)
	if err != nil {
		return fmt.Errorf("build verification service: %w", err)
	}

	jwt := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	mux := httptransport.NewRouter(httptransport.RouterDeps{
		Verification: handler.New(svc, log, int64(cfg.Security.MaxUploadBytes)),
		Trails:       handler.NewTrailHandler(primary, log),
		AdminToken:   cfg.AdminToken,
		Validator:    jwttoken.NewMiddlewareValidator(jwt),
		Gatherer:     reg,
		HTTPMetrics:  httpmetrics.NewHTTP(reg),
		Health:       healthChecks(registry, clients),
		Logger:       log,
	})

	log.Info("starting docverify",
		"environment", cfg.Environment,
		"redis", clients.redis != nil,
		"postgres", clients.db != nil,
		"kafka", clients.kafka != nil,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, mux), log)
}

// buildTrailStore picks Postgres or memory as the primary audit store and
// mirrors sealed trails to Kafka when brokers are configured. The primary
// also serves trail queries.
func buildTrailStore(ctx context.Context, cfg *config.Config, clients *infra, log *slog.Logger) (store.Store, service.TrailStore, error) {
	var primary store.Store = store.NewInMemoryStore()
	if clients.db != nil {
		pg := store.NewPostgresStore(clients.db)
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, nil, fmt.Errorf("migrate audit store: %w", err)
			}
		}
		primary = pg
	} else {
		log.Warn("no postgres DSN configured, audit trails are kept in memory")
	}

	if clients.kafka == nil {
		return primary, primary, nil
	}
	if cfg.Kafka.CreateTopic {
		if err := store.EnsureTopic(ctx, clients.kafka, cfg.Kafka.Topic, cfg.Kafka.TopicPartitions, cfg.Kafka.TopicReplication); err != nil {
			return nil, nil, fmt.Errorf("ensure trail topic: %w", err)
		}
	}
	return primary, store.NewFanout(log, primary, store.NewKafkaPublisher(clients.kafka, cfg.Kafka.Topic)), nil
}

// buildProviders registers one provider per default route target. Targets
// with a configured endpoint call it over HTTP; the rest answer statically.
func buildProviders(cfg *config.Config) (*providers.Registry, error) {
	classes := map[string][]models.DocumentClass{}
	for class, id := range providers.DefaultRouterConfig().Routes {
		classes[id] = append(classes[id], class)
	}

	var ps []providers.Provider
	for id, handled := range classes {
		sort.Slice(handled, func(i, j int) bool { return handled[i] < handled[j] })
		endpoint, ok := cfg.Providers.Endpoints[id]
		if !ok || endpoint == "" {
			if cfg.Environment != "local" {
				return nil, fmt.Errorf("provider %s has no endpoint configured", id)
			}
			ps = append(ps, providers.NewStaticProvider(id, cfg.Providers.StaticConfidence, nil))
			continue
		}
		ps = append(ps, providers.NewHTTPProvider(id, endpoint, cfg.Providers.APIKeys[id], cfg.Providers.Timeout,
			providers.WithClasses(handled...)))
	}
	registry, err := providers.NewRegistry(ps...)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	return registry, nil
}

func fallbackClass(raw string) models.DocumentClass {
	if raw == "none" {
		return ""
	}
	return models.DocumentClass(raw)
}

func buildScreener(cfg *config.Config, clients *infra, log *slog.Logger) (*security.Screener, error) {
	var malware security.MalwareScanner = scanner.NewSignatureScanner(scanner.DefaultSignatures()...)
	if cfg.Security.ScannerURL != "" {
		malware = scanner.NewHTTPScanner(cfg.Security.ScannerURL, cfg.Security.ScannerTimeout)
	}

	var backend ratelimit.Backend = ratelimit.NewInMemoryBackend(nil, 0)
	if clients.redis != nil {
		backend = ratelimit.NewRedisBackend(clients.redis, nil)
	}
	limiter := ratelimit.New(backend, ratelimit.Config{
		SubmitterLimit: cfg.Security.SubmitterLimit,
		AddressLimit:   cfg.Security.AddressLimit,
		Window:         cfg.Security.RateWindow,
	})

	screener, err := security.New(malware, limiter,
		security.WithLogger(log),
		security.WithMaxSize(cfg.Security.MaxUploadBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("build security screener: %w", err)
	}
	return screener, nil
}

func healthChecks(registry *providers.Registry, clients *infra) map[string]handler.CheckFunc {
	checks := map[string]handler.CheckFunc{}
	for _, p := range registry.All() {
		checks["provider:"+p.ID()] = p.Health
	}
	if clients.redis != nil {
		checks["redis"] = clients.redis.Health
	}
	if clients.db != nil {
		checks["postgres"] = clients.db.PingContext
	}
	if clients.kafka != nil {
		checks["kafka"] = func(ctx context.Context) error {
			if err := clients.kafka.Ping(ctx); err != nil {
				return errors.New("kafka unreachable")
			}
			return nil
		}
	}
	return checks
}
