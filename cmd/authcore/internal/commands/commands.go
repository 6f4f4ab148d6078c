package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/access"
	"github.com/buildgrid/authcore/internal/admin"
	"github.com/buildgrid/authcore/internal/claims"
	"github.com/buildgrid/authcore/internal/config"
	"github.com/buildgrid/authcore/internal/directory"
	"github.com/buildgrid/authcore/internal/graph"
	"github.com/buildgrid/authcore/internal/lifecycle"
	"github.com/buildgrid/authcore/internal/logger"
	"github.com/buildgrid/authcore/internal/store/postgres"
	"github.com/buildgrid/authcore/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
	Config  string
}

// runtime is the wired application: one pool, the stores over it, and the
// services over the stores.
type runtime struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	companies  *postgres.CompanyStore
	principals *postgres.PrincipalStore
	projects   *postgres.ProjectStore
	grants     *postgres.GrantStore

	cache       *claims.Cache
	checker     *access.Checker
	index       *graph.Index
	service     *admin.Service
	directory   *directory.Directory
	provisioner *directory.Provisioner

	shutdownTelemetry func(context.Context) error
}

// setup loads config, connects to Postgres with retry, and wires the
// service graph. Callers must defer rt.close(ctx).
func setup(ctx context.Context, globals *Globals) (*runtime, error) {
	logger.Setup(globals.Debug)

	cfg, err := config.LoadFrom(globals.Config)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.ServiceName, globals.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		rt.shutdownTelemetry = shutdown
	}

	poolCfg := &postgres.PoolConfig{
		ConnString:        cfg.Postgres.DSN,
		MaxConns:          cfg.Postgres.MaxConns,
		MinConns:          cfg.Postgres.MinConns,
		MaxConnLifetime:   cfg.Postgres.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
		ConnectTimeout:    cfg.Postgres.ConnectTimeout,
	}

	// Databases restart; retry the initial connection rather than failing a
	// one-shot admin command on a transient blip.
	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		return postgres.NewPool(ctx, poolCfg)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("Database connection failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.pool = pool

	rt.companies = postgres.NewCompanyStore(pool)
	rt.principals = postgres.NewPrincipalStore(pool)
	rt.projects = postgres.NewProjectStore(pool)
	rt.grants = postgres.NewGrantStore(pool)

	builder := claims.NewBuilder(rt.principals, rt.grants)
	cache, err := claims.NewCache(builder, cfg.Claims.TTL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	rt.cache = cache

	rt.index = graph.NewIndex(rt.projects, rt.grants, cfg.Graph.RefreshInterval)
	machine := lifecycle.NewMachine(rt.principals)

	rt.checker = access.NewChecker(cache)
	rt.service = admin.NewService(rt.checker, machine, rt.index, rt.companies, rt.principals, rt.projects, rt.grants, cache)
	rt.directory = directory.NewDirectory(rt.principals)
	rt.provisioner = directory.NewProvisioner(rt.principals)

	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.cache != nil {
		rt.cache.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.shutdownTelemetry != nil {
		if err := rt.shutdownTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}
}
