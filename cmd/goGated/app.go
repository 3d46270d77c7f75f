package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/audit/kafka"
	"github.com/MrEthical07/goGate/dispatch"
	"github.com/MrEthical07/goGate/httpapi"
	"github.com/MrEthical07/goGate/mail"
	otelexport "github.com/MrEthical07/goGate/metrics/export/otel"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/store/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type application struct {
	cfg    *AppConfig
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	kafka  *kafka.Sink
	otel   *otelexport.Exporter
	engine *goGate.Engine
	server *http.Server
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

func newApplication(ctx context.Context, cfg *AppConfig) (*application, error) {
	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	app := &application{cfg: cfg, logger: logger}

	if app.pool, err = postgres.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	if app.engine, err = app.buildEngine(ctx); err != nil {
		app.close()
		return nil, err
	}

	// Observes through the global provider; a no-op until the host installs one.
	if cfg.Engine.OTelMetrics {
		if app.otel, err = otelexport.NewExporter(otel.Meter("github.com/MrEthical07/goGate"), app.engine); err != nil {
			app.close()
			return nil, fmt.Errorf("init otel metrics: %w", err)
		}
	}

	router := httpapi.NewRouter(app.engine, logger, httpapi.Config{
		Cookie: middleware.CookieOptions{
			Name:   cfg.App.CookieName,
			Secure: cfg.App.CookieSecure,
		},
		TrustForwarded: cfg.App.TrustForwarded,
		RateLimit: middleware.RateLimitConfig{
			PerSecond: cfg.RateLimit.PerSecond,
			Burst:     cfg.RateLimit.Burst,
		},
	})
	app.server = &http.Server{
		Addr:              cfg.addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return app, nil
}

func (a *application) buildEngine(ctx context.Context) (*goGate.Engine, error) {
	cfg := a.cfg
	builder := goGate.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(a.redis).
		WithUserProvider(postgres.NewUserStore(a.pool)).
		WithLogger(a.logger)

	if cfg.Engine.AttemptStore == "postgres" {
		builder.WithAttemptStore(postgres.NewAttemptStore(a.pool))
	}

	// -------- GRANTS --------
	if cfg.Documents.GrantsFile != "" {
		doc, err := permission.LoadGrantsFile(cfg.Documents.GrantsFile)
		if err != nil {
			return nil, err
		}
		grants, err := doc.Grants()
		if err != nil {
			return nil, err
		}
		builder.WithRootProfiles(doc.Root...).WithGrants(grants)
	} else {
		grants, err := postgres.LoadGrants(ctx, a.pool)
		if err != nil {
			return nil, fmt.Errorf("load grants: %w", err)
		}
		builder.WithGrants(grants)
	}

	// -------- OPERATIONS --------
	if cfg.Documents.CatalogFile != "" {
		catalog, err := dispatch.LoadCatalogFile(cfg.Documents.CatalogFile)
		if err != nil {
			return nil, err
		}
		for _, op := range postgres.QueryOperations(a.pool, catalog) {
			builder.RegisterOperation(op)
		}
		a.logger.Info("operation catalog loaded",
			zap.String("path", cfg.Documents.CatalogFile),
			zap.Int("operations", len(catalog.Operations)),
		)
	}

	// -------- MAIL --------
	if cfg.SMTP.Host != "" {
		mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.SMTP.Timeout,
		})
		if err != nil {
			return nil, err
		}
		builder.WithMailer(mailer)
	} else {
		a.logger.Warn("smtp host not configured, recovery mail is logged only")
		builder.WithMailer(mail.NewLogMailer(a.logger))
	}

	// -------- AUDIT --------
	if cfg.Engine.AuditEnabled {
		if len(cfg.Kafka.Brokers) > 0 {
			sink, err := kafka.NewSink(kafka.Config{
				Brokers:  cfg.Kafka.Brokers,
				Topic:    cfg.Kafka.Topic,
				ClientID: cfg.Kafka.ClientID,
			}, a.logger)
			if err != nil {
				a.logger.Warn("kafka audit sink unavailable, logging audit events", zap.Error(err))
				builder.WithAuditSink(goGate.NewZapSink(a.logger))
			} else {
				a.kafka = sink
				builder.WithAuditSink(sink)
				a.logger.Info("kafka audit sink initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
			}
		} else {
			builder.WithAuditSink(goGate.NewZapSink(a.logger))
		}
	}

	engine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}

// run serves until ctx is cancelled, then drains in-flight requests.
func (a *application) run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting goGated",
			zap.String("env", a.cfg.App.Env),
			zap.String("address", a.server.Addr),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("goGated stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// close releases resources in reverse order of acquisition. The engine is
// closed before the Kafka sink so pending audit events are flushed first.
func (a *application) close() {
	if a.otel != nil {
		_ = a.otel.Close()
	}
	if a.engine != nil {
		a.engine.Close()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("close kafka audit sink", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.logger.Sync()
}
