package repository

import (
	"context"

	"github.com/DylanFeger/askeuno-sub001/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ConversationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewConversationRepository(db *pgxpool.Pool, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := squirrel.Insert("conversations").
		Columns("id", "user_id", "title", "created_at", "updated_at").
		Values(conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := squirrel.Select("id", "user_id", "title", "created_at", "updated_at").
		From("conversations").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var conv models.Conversation
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conv, nil
}

func (r *ConversationRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	query := squirrel.Select("id", "user_id", "title", "created_at", "updated_at").
		From("conversations").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
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

	var conversations []*models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		conversations = append(conversations, &conv)
	}

	return conversations, rows.Err()
}

// AttachSource links a data source to a conversation. The first source
// attached to a conversation becomes its primary.
func (r *ConversationRepository) AttachSource(ctx context.Context, link *models.ConversationSource) error {
	query := squirrel.Insert("conversation_sources").
		Columns("conversation_id", "data_source_id", "is_primary", "created_at").
		Values(link.ConversationID, link.DataSourceID, link.IsPrimary, link.CreatedAt).
		Suffix("ON CONFLICT (conversation_id, data_source_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ListSourceIDs returns the attached source IDs, primary first, then by
// attachment order.
func (r *ConversationRepository) ListSourceIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	query := squirrel.Select("data_source_id").
		From("conversation_sources").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		OrderBy("is_primary DESC", "created_at ASC").
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

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountSources returns how many sources are attached to a conversation.
func (r *ConversationRepository) CountSources(ctx context.Context, conversationID uuid.UUID) (int, error) {
	query := squirrel.Select("COUNT(*)").
		From("conversation_sources").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
