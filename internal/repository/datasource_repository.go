package repository

import (
	"context"
	"encoding/json"

	"github.com/DylanFeger/askeuno-sub001/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DataSourceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDataSourceRepository(db *pgxpool.Pool, logger *zap.Logger) *DataSourceRepository {
	return &DataSourceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DataSourceRepository) Create(ctx context.Context, src *models.DataSource) error {
	schemaJSON, err := json.Marshal(src.Schema)
	if err != nil {
		return err
	}

	var connJSON []byte
	if src.Connection != nil {
		connJSON, err = json.Marshal(src.Connection)
		if err != nil {
			return err
		}
	}

	query := squirrel.Insert("data_sources").
		Columns("id", "user_id", "name", "type", "schema", "connection", "row_count", "status", "created_at", "updated_at").
		Values(src.ID, src.UserID, src.Name, src.Type, schemaJSON, connJSON, src.RowCount, src.Status, src.CreatedAt, src.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	query := selectDataSources().
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, sql, args...)
	return scanDataSource(row)
}

func (r *DataSourceRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.DataSource, error) {
	query := selectDataSources().
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.DataSource
	for rows.Next() {
		src, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// ListByIDs returns sources in the order of the given IDs; unknown IDs
// are skipped. Input order matters to the planner's tie-breaking.
func (r *DataSourceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.DataSource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := selectDataSources().
		Where(squirrel.Eq{"id": ids}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.DataSource, len(ids))
	for rows.Next() {
		src, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		byID[src.ID] = src
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var sources []*models.DataSource
	for _, id := range ids {
		if src, ok := byID[id]; ok {
			sources = append(sources, src)
		}
	}

	return sources, nil
}

func (r *DataSourceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DataSourceStatus) error {
	query := squirrel.Update("data_sources").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DataSourceRepository) UpdateRowCount(ctx context.Context, id uuid.UUID, rowCount int64) error {
	query := squirrel.Update("data_sources").
		Set("row_count", rowCount).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func selectDataSources() squirrel.SelectBuilder {
	return squirrel.Select("id", "user_id", "name", "type", "schema", "connection", "row_count", "status", "created_at", "updated_at").
		From("data_sources")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataSource(row rowScanner) (*models.DataSource, error) {
	var src models.DataSource
	var schemaJSON []byte
	var connJSON []byte

	if err := row.Scan(
		&src.ID, &src.UserID, &src.Name, &src.Type, &schemaJSON, &connJSON, &src.RowCount, &src.Status, &src.CreatedAt, &src.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(schemaJSON) > 0 {
		if err := json.Unmarshal(schemaJSON, &src.Schema); err != nil {
			return nil, err
		}
	}
	if len(connJSON) > 0 {
		var conn models.DatabaseConnection
		if err := json.Unmarshal(connJSON, &conn); err != nil {
			return nil, err
		}
		src.Connection = &conn
	}

	return &src, nil
}
