package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"moul.io/zapgorm2"

	"github.com/foodgram/backend/config"
)

const (
	maxIdleTime = 5 * time.Minute
	maxLifetime = time.Hour
	pingTimeout = 5 * time.Second
)

// Open connects to the configured store. Postgres connections are opened
// through lib/pq and handed to gorm; sqlite is opened with foreign keys on.
func Open(cfg config.DB, logger *zap.Logger) (*gorm.DB, error) {
	gormLogger := zapgorm2.New(logger)
	gormLogger.SetAsDefault()
	gormConfig := &gorm.Config{Logger: gormLogger, TranslateError: true}

	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Driver {
	case "postgres":
		logger.Info("Connecting to database",
			zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("user", cfg.User))

		sqlDB, openErr := sql.Open("postgres", cfg.DSN())
		if openErr != nil {
			return nil, fmt.Errorf("error opening database: %w", openErr)
		}

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("error connecting to the database: %w", err)
		}

		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
	case "sqlite":
		logger.Info("Opening sqlite database", zap.String("path", cfg.Path))
		db, err = gorm.Open(sqlite.Open(SqliteDSN(cfg.Path)), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetConnMaxIdleTime(maxIdleTime)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	logger.Info("Successfully connected to database", zap.String("driver", cfg.Driver))
	return db, nil
}

// SqliteDSN enables foreign key enforcement, which sqlite leaves off by default.
func SqliteDSN(path string) string {
	return path + "?_foreign_keys=1"
}

// HealthCheck checks if the database is accessible
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}
