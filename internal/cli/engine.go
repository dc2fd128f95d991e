package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mrz1836/taskflow/internal/access"
	"github.com/mrz1836/taskflow/internal/activity"
	"github.com/mrz1836/taskflow/internal/config"
	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/graph"
	"github.com/mrz1836/taskflow/internal/logging"
	"github.com/mrz1836/taskflow/internal/store"
	"github.com/mrz1836/taskflow/internal/task"
	"github.com/mrz1836/taskflow/internal/wip"
	"github.com/mrz1836/taskflow/internal/workflow"
)

// Engine bundles the services a command talks to.
type Engine struct {
	Store    *store.Store
	Activity *activity.Recorder
	Workflow *workflow.Resolver
	Graph    *graph.Manager
	Tasks    *task.Service

	redis *redis.Client
}

// OpenEngine opens the store and wires every service from ec's configuration.
// The caller must Close the engine.
func OpenEngine(ctx context.Context, ec *ExecutionContext) (*Engine, error) {
	cfg := ec.Config
	logger := ec.Logger

	dsn, err := config.DatabaseDSN(&cfg.Database)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("driver", cfg.Database.Driver).
		Str("dsn", logging.RedactDSN(dsn)).
		Msg("opening store")

	if cfg.Database.Driver == constants.DriverSQLite {
		if err := ensureDatabaseDir(dsn); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(ctx, store.Options{
		Driver:       cfg.Database.Driver,
		DSN:          dsn,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{Store: st}
	gate := newGate(&cfg.Access)

	var resolverOpts []workflow.ResolverOption
	if cfg.Cache.Enabled {
		e.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			DB:       cfg.Cache.RedisDB,
			Password: cfg.Cache.RedisPassword,
		})
		resolverOpts = append(resolverOpts, workflow.WithCache(workflow.NewRedisCache(e.redis, cfg.Cache.TTL, logger)))
	}

	e.Activity = activity.NewRecorder(st, gate, logger)
	e.Workflow = workflow.NewResolver(st, gate, e.Activity, workflow.Config{MaxLimit: cfg.Workflow.MaxWIPLimit}, logger, resolverOpts...)
	e.Graph = graph.NewManager(st, gate, e.Activity, graph.Config{CycleSearchLimit: cfg.Workflow.CycleSearchLimit}, logger)
	e.Tasks = task.NewService(st, gate, wip.NewController(e.Workflow, logger), e.Graph, e.Activity, logger,
		task.WithLimitReader(e.Workflow),
		task.WithMetrics(newLogMetrics(logger)),
		task.WithNotifier(task.NewStateChangeNotifier(notificationConfig(&cfg.Notifications, ec.Quiet))),
	)
	return e, nil
}

// Close releases the database pool and the redis client.
func (e *Engine) Close() error {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	return e.Store.Close()
}

// ensureDatabaseDir creates the parent directory of a plain sqlite file path.
func ensureDatabaseDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// newGate admits everyone when no memberships are configured.
func newGate(cfg *config.AccessConfig) access.Gate {
	if len(cfg.Memberships) == 0 {
		return access.AllowAll{}
	}
	gate := access.NewStaticGate(nil)
	for _, m := range cfg.Memberships {
		gate.Grant(m.Organization, m.Workspace, m.Actor)
	}
	return gate
}

// logMetrics reports engine counters to the debug log.
type logMetrics struct {
	logger zerolog.Logger
}

var _ task.Metrics = (*logMetrics)(nil)

func newLogMetrics(logger zerolog.Logger) *logMetrics {
	return &logMetrics{logger: logger.With().Str("component", "metrics").Logger()}
}

func (m *logMetrics) TaskMoved(projectID string, from, to constants.TaskStatus) {
	m.logger.Debug().Str("project_id", projectID).Str("from", string(from)).Str("to", string(to)).Msg("task moved")
}

func (m *logMetrics) AdmissionDenied(projectID string, status constants.TaskStatus, forbidden bool) {
	m.logger.Debug().Str("project_id", projectID).Str("status", string(status)).Bool("forbidden", forbidden).Msg("admission denied")
}

func (m *logMetrics) OverrideUsed(projectID string, status constants.TaskStatus) {
	m.logger.Debug().Str("project_id", projectID).Str("status", string(status)).Msg("wip override used")
}
