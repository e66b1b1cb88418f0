package repository

import (
	"context"
	"errors"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MessageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMessageRepository(db *pgxpool.Pool, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MessageRepository) Append(ctx context.Context, msg *models.Message) error {
	query := squirrel.Insert("messages").
		Columns("id", "conversation_id", "user_id", "role", "content", "metadata", "query_hash", "created_at").
		Values(msg.ID, msg.ConversationID, msg.UserID, msg.Role, msg.Content, msg.Metadata, msg.QueryHash, msg.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*models.Message, error) {
	query := squirrel.Select("id", "conversation_id", "user_id", "role", "content", "metadata", "query_hash", "created_at").
		From("messages").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		OrderBy("created_at ASC").
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

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Role, &msg.Content, &msg.Metadata, &msg.QueryHash, &msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// LatestAssistantByHash returns the most recent assistant message in the
// conversation carrying the given cache hash, created at or after cutoff.
func (r *MessageRepository) LatestAssistantByHash(ctx context.Context, conversationID uuid.UUID, hash string, cutoff time.Time) (*models.Message, error) {
	query := squirrel.Select("id", "conversation_id", "user_id", "role", "content", "metadata", "query_hash", "created_at").
		From("messages").
		Where(squirrel.Eq{
			"conversation_id": conversationID,
			"role":            models.RoleAssistant,
			"query_hash":      hash,
		}).
		Where(squirrel.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var msg models.Message
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Role, &msg.Content, &msg.Metadata, &msg.QueryHash, &msg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

// SetQueryHash attaches a cache hash to an already stored message.
func (r *MessageRepository) SetQueryHash(ctx context.Context, messageID uuid.UUID, hash string) error {
	query := squirrel.Update("messages").
		Set("query_hash", hash).
		Where(squirrel.Eq{"id": messageID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ClearExpiredHashes nulls the cache hash on messages older than cutoff.
// Message content is never touched, only the cache index field.
func (r *MessageRepository) ClearExpiredHashes(ctx context.Context, cutoff time.Time) (int64, error) {
	query := squirrel.Update("messages").
		Set("query_hash", nil).
		Where(squirrel.NotEq{"query_hash": nil}).
		Where(squirrel.Lt{"created_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// CountUserMessagesSince counts the user's own messages created after
// cutoff, across all conversations. Used for hourly rate limits.
func (r *MessageRepository) CountUserMessagesSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	query := squirrel.Select("COUNT(*)").
		From("messages").
		Where(squirrel.Eq{
			"user_id": userID,
			"role":    models.RoleUser,
		}).
		Where(squirrel.GtOrEq{"created_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
