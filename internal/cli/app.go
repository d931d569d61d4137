package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/config"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/adapters/dynamodb"
	"github.com/aretw0/concierge/pkg/adapters/file"
	httpadapter "github.com/aretw0/concierge/pkg/adapters/http"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/adapters/process"
	redisadapter "github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/adapters/sqlite"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/observability"
	"github.com/aretw0/concierge/pkg/persistence/middleware"
	"github.com/aretw0/concierge/pkg/ports"
)

// App is the assembled assistant with everything the commands need.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Assistant *concierge.Assistant
	Streams   *httpadapter.StreamManager
	// Registry is nil unless metrics are enabled.
	Registry *prometheus.Registry
	// Records is the configured sink when it can read records back.
	Records ports.RecordLister

	closers []func() error
}

// AppOption adjusts how the App is assembled.
type AppOption func(*appSettings)

type appSettings struct {
	logOutput io.Writer
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) AppOption {
	return func(s *appSettings) { s.logOutput = w }
}

// NewApp builds the assistant from configuration: store, encryption, sink, PII
// masking, locking, metrics, hooks and extra flows.
func NewApp(ctx context.Context, cfg config.Config, opts ...AppOption) (_ *App, err error) {
	settings := appSettings{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&settings)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config: cfg,
		Logger: logging.NewWithWriter(settings.logOutput, level, cfg.LogJSON),
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()
	app.Streams = httpadapter.NewStreamManager(app.Logger)

	var db *sql.DB
	if cfg.Store == config.StoreSQLite || cfg.Sink == config.SinkSQLite {
		if db, err = sqlite.Open(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
	}

	store, locker, err := app.buildStore(db)
	if err != nil {
		return nil, err
	}
	sink, err := app.buildSink(ctx, db)
	if err != nil {
		return nil, err
	}

	hooks := []domain.LifecycleHooks{logging.Hooks(app.Logger)}
	if cfg.Metrics.Enabled {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(app.Registry)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, metrics.Hooks())
	}

	aopts := []concierge.Option{
		concierge.WithStore(store),
		concierge.WithLogger(app.Logger),
		concierge.WithLifecycleHooks(domain.CombineHooks(hooks...)),
		concierge.WithThinkLatency(cfg.ThinkLatency),
		concierge.WithResolveTimeout(cfg.ResolveTimeout),
		concierge.WithStaleAfter(cfg.StaleAfter()),
		concierge.WithChangeListener(app.Streams.Publish),
	}
	if sink != nil {
		aopts = append(aopts, concierge.WithSink(sink))
	}
	if locker != nil {
		aopts = append(aopts, concierge.WithLocker(locker))
	}
	if cfg.Flows != "" {
		extra, err := file.LoadFlows(cfg.Flows)
		if err != nil {
			return nil, fmt.Errorf("flows %s: %w", cfg.Flows, err)
		}
		app.Logger.Debug("Loaded flows file", "path", cfg.Flows, "flows", len(extra))
		aopts = append(aopts, concierge.WithFlows(extra...))
	}

	if app.Assistant, err = concierge.New(aopts...); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) buildStore(db *sql.DB) (ports.ConversationStore, ports.DistributedLocker, error) {
	cfg := a.Config
	var store ports.ConversationStore
	var locker ports.DistributedLocker

	switch cfg.Store {
	case config.StoreRedis:
		rs := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithTTL(cfg.Redis.TTL),
		)
		a.closers = append(a.closers, rs.Close)
		if cfg.Redis.Lock {
			locker = redisadapter.NewLocker(rs.Client(), cfg.Redis.Prefix)
		}
		store = rs
	case config.StoreSQLite:
		store = sqlite.NewStore(db)
	case config.StoreFile:
		store = file.NewStore(cfg.File.Dir)
	default:
		store = memory.NewStore()
	}

	if cfg.EncryptionKey != "" {
		active, fallback, err := cfg.Keys()
		if err != nil {
			return nil, nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, nil, err
		}
		store = middleware.Chain(store, enc)
	}
	a.Logger.Debug("Conversation store ready", "backend", cfg.Store, "encrypted", cfg.EncryptionKey != "")
	return store, locker, nil
}

func (a *App) buildSink(ctx context.Context, db *sql.DB) (ports.RecordSink, error) {
	cfg := a.Config
	var sinks []ports.RecordSink

	switch cfg.Sink {
	case config.SinkMemory:
		s := memory.NewSink()
		a.Records = s
		sinks = append(sinks, s)
	case config.SinkSQLite:
		s := sqlite.NewSink(db)
		a.Records = s
		sinks = append(sinks, s)
	case config.SinkDynamoDB:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.DynamoDB.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.DynamoDB.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		s, err := dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), cfg.DynamoDB.Table,
			dynamodb.WithTTL(cfg.DynamoDB.TTL),
		)
		if err != nil {
			return nil, err
		}
		a.Records = s
		sinks = append(sinks, s)
	}

	if cfg.Commands != "" {
		commands, err := process.LoadCommands(cfg.Commands)
		if err != nil {
			return nil, err
		}
		cs := process.NewSink(process.WithRegistry(commands), process.WithLogger(a.Logger))
		if cs.Len() > 0 {
			sinks = append(sinks, cs)
		}
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	sink := sinks[0]
	if len(sinks) > 1 {
		sink = fanOut(sinks)
	}

	patterns := cfg.PIIPatterns
	if len(patterns) == 0 {
		patterns = middleware.DefaultPIIPatterns
	}
	pii, err := middleware.NewPIIMiddleware(patterns)
	if err != nil {
		return nil, err
	}
	return middleware.ChainSink(sink, pii), nil
}

// fanOut publishes to every sink, joining the failures.
func fanOut(sinks []ports.RecordSink) ports.RecordSink {
	return ports.RecordSinkFunc(func(ctx context.Context, rec domain.Record) error {
		var errs []error
		for _, s := range sinks {
			if err := s.Publish(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Close releases the store and database connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
