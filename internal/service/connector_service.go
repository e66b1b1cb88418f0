package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	// ErrConnectionFailed means the credential could not even connect.
	ErrConnectionFailed = errors.New("could not connect to the database")
	// ErrWritableCredentials means the credential connected but proved
	// writable. The two must stay distinguishable in user-facing messages.
	ErrWritableCredentials = errors.New("this user has write permissions, provide a read-only credential")
)

// ConnectorService talks to users' external databases. Every call opens
// its own connection: the probe must run in a single private session and
// tenant queries must never ride the shared application pool.
type ConnectorService struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewConnectorService(cfg *config.QueryConfig, logger *zap.Logger) *ConnectorService {
	return &ConnectorService{
		timeout: cfg.FetchTimeout,
		logger:  logger,
	}
}

// VerifyReadOnly checks that the credential cannot write by attempting a
// harmless create+drop of a temporary table inside one session. The
// probe succeeding means the credential is writable and gets rejected,
// regardless of what the user claims.
func (s *ConnectorService) VerifyReadOnly(ctx context.Context, connCfg models.DatabaseConnection) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, connCfg.DSN())
	if err != nil {
		s.logger.Warn("Read-only verification: connection failed",
			zap.String("host", connCfg.Host),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "CREATE TEMPORARY TABLE _readonly_probe (id INT)")
	if err == nil {
		// Clean up inside the same session before rejecting
		_, _ = conn.Exec(ctx, "DROP TABLE _readonly_probe")
		s.logger.Warn("Read-only verification: credential is writable",
			zap.String("host", connCfg.Host),
		)
		return ErrWritableCredentials
	}

	s.logger.Info("Read-only verification passed",
		zap.String("host", connCfg.Host),
		zap.String("database", connCfg.DBName),
	)
	return nil
}

// RunQuery executes read-only SQL against an external database with the
// row ceiling enforced, returning rows as generic maps.
func (s *ConnectorService) RunQuery(ctx context.Context, connCfg models.DatabaseConnection, query string, limit int) ([]map[string]any, error) {
	if err := GuardQuery(query); err != nil {
		return nil, err
	}
	query = EnforceLimit(query, limit)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, connCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return result, nil
}
