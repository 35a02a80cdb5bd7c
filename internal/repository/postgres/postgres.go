package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/config"
	"github.com/jafarshop/storeapi/internal/repository"
)

// NewConnection opens a PostgreSQL connection pool
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// executor is satisfied by both *sql.DB and *sql.Tx, so the same repository
// code serves plain calls and transaction-scoped calls.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewRepositories creates all repositories over a database connection
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return newRepositories(db, logger)
}

func newRepositories(exec executor, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		User:     NewUserRepository(exec, logger),
		Product:  NewProductRepository(exec, logger),
		Cart:     NewCartRepository(exec, logger),
		Order:    NewOrderRepository(exec, logger),
		Category: NewCategoryRepository(exec, logger),
	}
}

type txManager struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTxManager creates the transaction boundary over a connection pool
func NewTxManager(db *sql.DB, logger *zap.Logger) repository.TxManager {
	return &txManager{db: db, logger: logger}
}

// WithinTx runs fn against transaction-scoped repositories. Any error from
// fn rolls everything back; the transaction commits only when fn succeeds.
func (m *txManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}

	if err := fn(ctx, newRepositories(tx, m.logger)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			m.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		m.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}
