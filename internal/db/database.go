// Package db persists finalized scan reports in PostgreSQL. It handles
// connection setup, schema migrations and the report repository.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anstrom/skim/internal/errors"
	"github.com/anstrom/skim/internal/logging"
)

// sanitizeDBError converts raw database errors into coded errors that do not
// expose SQL details or credentials. The original error is kept as Cause.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var dbErr *errors.DatabaseError
	var pqErr *pq.Error
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		dbErr = errors.WrapDatabaseError(errors.CodeDatabaseQuery, "No rows found", err)
	case stderrors.Is(err, context.Canceled):
		dbErr = errors.WrapDatabaseError(errors.CodeCanceled, "Database operation was canceled", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		dbErr = errors.WrapDatabaseError(errors.CodeTimeout, "Database operation timed out", err)
	case stderrors.As(err, &pqErr):
		switch pqErr.Code {
		case "23505": // unique_violation
			dbErr = errors.WrapDatabaseError(errors.CodeDatabaseQuery, "Record already exists", err)
		case "23502", "23503", "23514": // not_null, foreign_key, check
			dbErr = errors.WrapDatabaseError(errors.CodeValidation, "Record failed database constraints", err)
		case "57014": // query_canceled
			dbErr = errors.WrapDatabaseError(errors.CodeCanceled, "Database operation was canceled", err)
		case "57P01", "08000", "08003", "08006": // admin_shutdown, connection errors
			dbErr = errors.WrapDatabaseError(errors.CodeDatabaseConnection, "Database connection error", err)
		default:
			dbErr = errors.WrapDatabaseError(errors.CodeDatabaseQuery,
				fmt.Sprintf("Database operation failed: %s", operation), err)
		}
	default:
		dbErr = errors.WrapDatabaseError(errors.CodeDatabaseQuery,
			fmt.Sprintf("Database operation failed: %s", operation), err)
	}

	dbErr.Operation = operation
	return dbErr
}

const (
	// Default database configuration values.
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5
	defaultConnMaxIdleTime = 5
)

// DB wraps sqlx.DB.
type DB struct {
	*sqlx.DB
}

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration.
// Database name, username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		Database:        "", // Must be configured
		Username:        "", // Must be configured
		Password:        "", // Must be configured
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime * time.Minute,
		ConnMaxIdleTime: defaultConnMaxIdleTime * time.Minute,
	}
}

// DSN returns the lib/pq key=value connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// Connect establishes a connection to PostgreSQL.
// Returned errors never contain the DSN.
func Connect(ctx context.Context, config *Config, logger *logging.Logger) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, errors.ErrDatabaseConnection(err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("Failed to close database connection after ping failure")
		}
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection, "Failed to verify database connection", err)
	}

	logger.InfoDatabase("Connected to database",
		"host", config.Host, "port", config.Port, "database", config.Database)
	return &DB{DB: db}, nil
}

// ConnectAndMigrate connects to the database and applies pending migrations.
func ConnectAndMigrate(ctx context.Context, config *Config, logger *logging.Logger) (*DB, error) {
	db, err := Connect(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	migrator := NewMigrator(db.DB, logger)
	if err := migrator.Up(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseMigration, "Migration failed", err)
	}

	return db, nil
}
