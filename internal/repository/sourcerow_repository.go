package repository

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SourceRowRepository stores the parsed rows of file and api backed
// data sources, one JSON object per row.
type SourceRowRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSourceRowRepository(db *pgxpool.Pool, logger *zap.Logger) *SourceRowRepository {
	return &SourceRowRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SourceRowRepository) BulkInsert(ctx context.Context, sourceID uuid.UUID, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	query := squirrel.Insert("source_rows").
		Columns("data_source_id", "row_number", "data").
		PlaceholderFormat(squirrel.Dollar)

	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		query = query.Values(sourceID, i+1, data)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FetchRows returns up to limit rows for the source, in insertion order.
func (r *SourceRowRepository) FetchRows(ctx context.Context, sourceID uuid.UUID, limit int) ([]map[string]any, error) {
	query := squirrel.Select("data").
		From("source_rows").
		Where(squirrel.Eq{"data_source_id": sourceID}).
		OrderBy("row_number ASC").
		Limit(uint64(limit)).
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

	var result []map[string]any
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var row map[string]any
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func (r *SourceRowRepository) DeleteBySource(ctx context.Context, sourceID uuid.UUID) error {
	query := squirrel.Delete("source_rows").
		Where(squirrel.Eq{"data_source_id": sourceID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
