package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"coursesync/internal/access"
	"coursesync/internal/config"
	"coursesync/internal/database"
	"coursesync/internal/drive"
	"coursesync/internal/model"
)

// App is the application layer between the CLI and the access service.
// It constructs all dependencies from config, records each mutating run
// in the store, and manages resource lifecycles on Close.
//
// The remote-storage client is built lazily: database-only commands
// (seed, clear, history) never touch the credentials file.
type App struct {
	cfg     *config.Config
	store   access.Store
	drv     access.Drive
	service *access.Service
	logger  access.Logger
	op      *Operation
	logFile *os.File
	runID   string
}

// InitDB creates or migrates the configured database schema. Idempotent;
// used by the db init command before any App can be constructed.
func InitDB(cfg *config.Config) error {
	return database.Migrate(cfg.Database)
}

// NewApp creates an App from the given config. operation identifies the
// CLI command being run (e.g. "Sync", "SeedDB"). The caller must call
// Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Database, cfg.Policy.CourseKeyIncludesSubCategory)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	runID := uuid.New().String()
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:     cfg,
		store:   store,
		logger:  &slogAdapter{l: logger},
		op:      NewOperation(operation, ""),
		logFile: logFile,
		runID:   runID,
	}, nil
}

// ensureService builds the remote-storage client, resolver, and service
// on first use.
func (a *App) ensureService(ctx context.Context) error {
	if a.service != nil {
		return nil
	}

	drv, err := drive.NewDriveFromConfig(ctx, a.cfg.Drive)
	if err != nil {
		return fmt.Errorf("creating drive client: %w", err)
	}

	resolver := access.NewResolver(drv, a.logger, access.ResolverOptions{
		FolderQuery:       a.cfg.MimeTypes.Folder,
		PresentationQuery: a.cfg.MimeTypes.Presentation,
		SecondaryQueries:  a.cfg.MimeTypes.SecondaryQueries(),
		MissingFolder:     access.MissingFolderPolicy(a.cfg.Policy.MissingFolder),
	})

	a.drv = drv
	a.service = access.NewService(a.store, drv, resolver, a.logger, a.cfg.Drive.CopyRestriction)
	return nil
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.store.CreateSyncOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting sync operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// fail marks the operation record as errored and passes the error through.
func (a *App) fail(err error) error {
	a.op.Status = statusError
	return err
}

// Sync runs the full batch: grant access to New users, revoke it from
// Fired users, and optionally apply the copy restriction afterwards.
func (a *App) Sync(ctx context.Context, restrictCopy bool) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := a.ensureService(ctx); err != nil {
		return a.fail(err)
	}
	if err := a.service.Run(restrictCopy); err != nil {
		return a.fail(err)
	}
	return nil
}

// RestrictCopy applies the configured copy-restriction attributes to all
// presentation files.
func (a *App) RestrictCopy(ctx context.Context) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := a.ensureService(ctx); err != nil {
		return a.fail(err)
	}
	if err := a.service.ApplyCopyRestriction(); err != nil {
		return a.fail(err)
	}
	return nil
}

// SeedDB populates the database from a JSON mock-data file. An empty
// path uses the configured seed.data_path.
func (a *App) SeedDB(dataPath string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}

	if dataPath == "" {
		dataPath = a.cfg.Seed.DataPath
	}
	if dataPath == "" {
		return a.fail(fmt.Errorf("no seed data path given and seed.data_path not configured"))
	}

	if err := database.Seed(a.store, dataPath, a.logger); err != nil {
		return a.fail(err)
	}
	return nil
}

// ClearDB deletes all rows from the named tables (default: all three
// membership tables).
func (a *App) ClearDB(tables ...string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := a.store.Clear(tables...); err != nil {
		return a.fail(err)
	}
	return nil
}

// History returns the most recent sync operations, newest first.
func (a *App) History(limit int) ([]*model.SyncOperation, error) {
	return a.store.ListSyncOperations(limit)
}

// Close finalizes the operation record (for mutating commands) and
// releases the store and the log file.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.FinishSyncOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing sync operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
