// Package bootstrap holds the startup and shutdown steps shared by every
// binary under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/instance"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/migrate"
	"github.com/angelmondragon/tradelink-backend/pkg/pubsub"
	"github.com/angelmondragon/tradelink-backend/pkg/redis"
)

type closer struct {
	name  string
	close func() error
}

// Process is one running binary: its config, its logger and every client
// it opened. Clients are closed in reverse order of opening.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

// Start reads .env when present, loads config and rebuilds the logger at
// the configured level and format.
func Start(kind string) (*Process, error) {
	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return &Process{Kind: kind, Logger: logg, exit: os.Exit}, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = kind

	return &Process{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
		exit: os.Exit,
	}, nil
}

// Must is Start for main: a config error ends the process.
func Must(kind string) *Process {
	p, err := Start(kind)
	if err != nil {
		p.Fatal(context.Background(), "failed to load config", err)
	}
	return p
}

// Context is cancelled on SIGINT or SIGTERM and carries the fields every
// log line of the process should have.
func (p *Process) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{"serviceKind": p.Kind, "instance": instance.GetID()}
	if p.Config != nil {
		fields["env"] = p.Config.App.Env
	}
	return p.Logger.WithFields(ctx, fields), stop
}

// OnClose registers fn to run during Close.
func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, close: fn})
}

// Database opens the pool and, in dev with auto-migrate on, brings the
// schema up to date.
func (p *Process) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	p.OnClose("database", client.Close)
	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	p.OnClose("redis", client.Close)
	return client, nil
}

func (p *Process) PubSub(ctx context.Context, role pubsub.Role) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, role, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	p.OnClose("pubsub", client.Close)
	return client, nil
}

// Close releases every registered client, newest first, and logs the
// combined error.
func (p *Process) Close() {
	var err error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if cerr := c.close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", c.name, cerr))
		}
	}
	p.closers = nil
	if err != nil {
		p.Logger.Error(context.Background(), "error closing clients", err)
	}
}

// Fatal logs err, closes what was opened and exits with status 1. Deferred
// calls in main do not run.
func (p *Process) Fatal(ctx context.Context, msg string, err error) {
	p.Logger.Error(ctx, msg, err)
	p.Close()
	p.exit(1)
}
