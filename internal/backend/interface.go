package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/services"
	"ledger/internal/sheets"
	"ledger/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the store and the optional collaborators built for it.
// Publisher and AMQP are nil when no broker is configured or reachable.
type BackendResult struct {
	Store     store.Store
	Publisher services.EventPublisher
	AMQP      *amqp.Client
	Cleanup   CleanupFunc
}

// SheetsResult holds the spreadsheet adapters. Both are nil when export is
// not configured.
type SheetsResult struct {
	Exporter sheets.TransactionExporter
	Budgets  sheets.BudgetReportWriter
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateSheets(ctx context.Context, config Config) (*SheetsResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
