package backend

import (
	"context"
	"fmt"

	"halya/internal/log"
	"halya/internal/storage"
	"halya/internal/store/google"
	"halya/internal/store/memory"
	"halya/internal/store/postgrest"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case PostgRESTBackend:
		return f.createPostgRESTBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createPostgRESTBackend(config Config) (*BackendResult, error) {
	client, err := postgrest.NewClient(postgrest.ClientConfig{
		BaseURL: config.SupabaseURL,
		APIKey:  config.SupabaseKey,
		Schema:  config.SupabaseSchema,
		Timeout: config.FetchTimeout,
		Logger:  f.logger.WithComponent(log.ComponentStore),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", err)
	}

	f.logger.Info("Initialized PostgREST backend", "schema", config.SupabaseSchema)

	return &BackendResult{Store: client, Type: PostgRESTBackend}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{Store: repo, Cleanup: repo.Close, Type: PostgresBackend}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Store: repo, Cleanup: repo.Close, Type: SQLiteBackend}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		ResidentsSheet:  config.GoogleResidentsSheet,
		PaymentsSheet:   config.GooglePaymentsSheet,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{Store: cli, Type: SheetsBackend}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	st, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed data: %w", err)
	}
	residents, payments := st.Counts()

	f.logger.Info("Initialized memory backend",
		"data_directory", dataDir,
		"residents", residents,
		"payments", payments)

	return &BackendResult{Store: st, Type: MemoryBackend}, nil
}
