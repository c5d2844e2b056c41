package backend

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	applog "ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/storage"
	"ledger/internal/store"
	"ledger/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens the configured store and, when AMQP_URL is set,
// connects the event publisher. A broker that cannot be reached is logged and
// the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	st, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: st}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				applog.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.AMQP = client
			result.Publisher = client
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			errs = append(errs, result.AMQP.Close())
		}
		errs = append(errs, st.Close())
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		"amqp_enabled", result.AMQP != nil)

	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL store")
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateSheets builds the Google Sheets adapters when a spreadsheet is
// configured. Without one it returns an empty result.
func (f *DefaultFactory) CreateSheets(ctx context.Context, config Config) (*SheetsResult, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "Google Sheets export disabled")
		return &SheetsResult{}, nil
	}

	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		TransactionsSheet: config.GoogleSheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets export", "sheet", config.GoogleSheetName)
	return &SheetsResult{Exporter: cli, Budgets: cli}, nil
}
