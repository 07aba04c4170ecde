package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"TrendSnapshot/internal/config"
	"TrendSnapshot/internal/domain"
	"TrendSnapshot/internal/infrastructure/httpapi"
	"TrendSnapshot/internal/infrastructure/scheduler"
	"TrendSnapshot/internal/infrastructure/storage"
	"TrendSnapshot/internal/logging"
	"TrendSnapshot/internal/usecase"
)

// Application wires configs to the snapshot lifecycle and its adapters.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	builder *usecase.Builder
}

// New opens the database connection and assembles the lifecycle manager.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	builder := usecase.NewBuilder(usecase.BuilderDeps{
		Reader: storage.NewNewsItemReader(db),
		Store:  storage.NewSnapshotStore(db),
		Logger: baseLogger.With("component", "builder"),
	}, usecase.Limits{
		Window:    cfg.Builder.Window(),
		Retention: cfg.Builder.Retention(),
		Staleness: cfg.Builder.Staleness(),
		MinItems:  cfg.Builder.MinItems,
	})

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		builder: builder,
	}, nil
}

// Close releases the database connection.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Migrate applies the snapshot store schema.
func (a *Application) Migrate(ctx context.Context) error {
	return storage.Init(ctx, a.db)
}

// Build runs a single snapshot build.
func (a *Application) Build(ctx context.Context, opts usecase.BuildOptions) (domain.BuildResult, error) {
	return a.builder.Build(ctx, opts)
}

// Latest returns the most recently published snapshot, or nil.
func (a *Application) Latest(ctx context.Context) (*domain.Snapshot, error) {
	return a.builder.Latest(ctx)
}

// ByID returns a published snapshot by identifier, or nil.
func (a *Application) ByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	return a.builder.ByID(ctx, id)
}

// Prune runs retention pruning outside a build.
func (a *Application) Prune(ctx context.Context) (int64, error) {
	return a.builder.Prune(ctx)
}

// Serve runs the read-only snapshot API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	server := httpapi.NewServer(a.builder, a.logger.With("component", "httpapi"))
	return server.Serve(ctx, a.cfg.HTTP.Addr)
}

// RunScheduler runs recurring builds until ctx is cancelled.
func (a *Application) RunScheduler(ctx context.Context, opts usecase.BuildOptions) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, a.builder,
		a.logger.With("component", "scheduler"), opts)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}
