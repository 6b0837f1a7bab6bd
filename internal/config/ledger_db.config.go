package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		os.Getenv("DB_NAME"),
	)
}

func ConnectDB(ctx context.Context, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = int32(getEnvAsInt64("DB_MAX_CONNS", 50))
	config.MinConns = int32(getEnvAsInt64("DB_MIN_CONNS", 5))
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 5 * time.Minute

	maxRetries := 5
	delay := 2 * time.Second

	for i := 1; i <= maxRetries; i++ {
		logger.Info("connecting to database", zap.Int("attempt", i), zap.Int("max_attempts", maxRetries))

		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		dbpool, connErr := pgxpool.NewWithConfig(attemptCtx, config)
		if connErr == nil {
			connErr = dbpool.Ping(attemptCtx)
			if connErr == nil {
				cancel()
				logger.Info("connected to database")
				return dbpool, nil
			}
			dbpool.Close()
		}
		cancel()
		err = connErr

		logger.Warn("database connection failed", zap.Error(err))

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect to DB after %d attempts: %w", maxRetries, err)
}
