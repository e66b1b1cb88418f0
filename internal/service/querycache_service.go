package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// messageCacheStore is the slice of the message store the cache needs.
type messageCacheStore interface {
	LatestAssistantByHash(ctx context.Context, conversationID uuid.UUID, hash string, cutoff time.Time) (*models.Message, error)
	SetQueryHash(ctx context.Context, messageID uuid.UUID, hash string) error
	ClearExpiredHashes(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueryCacheService deduplicates identical chat questions within a
// conversation. It is a derived index over the message history, not a
// separate store, and is a pure optimization: every failure here
// degrades to a cache miss, never to a failed request.
type QueryCacheService struct {
	messages messageCacheStore
	ttl      time.Duration
	logger   *zap.Logger
}

func NewQueryCacheService(messages messageCacheStore, cfg *config.CacheConfig, logger *zap.Logger) *QueryCacheService {
	return &QueryCacheService{
		messages: messages,
		ttl:      cfg.TTL,
		logger:   logger,
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeQuestion lowercases, trims, collapses whitespace runs and
// strips trailing punctuation. Internal punctuation (apostrophes etc.)
// is kept as-is.
func normalizeQuestion(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	q = whitespaceRun.ReplaceAllString(q, " ")
	q = strings.TrimRight(q, "?!.,;:")
	return strings.TrimSpace(q)
}

// HashQuery content-addresses a (user, conversation, question) triple.
// The same question from another user or conversation hashes differently.
func (s *QueryCacheService) HashQuery(userID, conversationID uuid.UUID, question string) string {
	input := userID.String() + ":" + conversationID.String() + ":" + normalizeQuestion(question)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// GetCachedResponse returns the cached answer for the question, or nil
// on miss, expiry, or any storage error.
func (s *QueryCacheService) GetCachedResponse(ctx context.Context, userID, conversationID uuid.UUID, question string) *models.CachedAnswer {
	hash := s.HashQuery(userID, conversationID, question)
	cutoff := time.Now().Add(-s.ttl)

	msg, err := s.messages.LatestAssistantByHash(ctx, conversationID, hash, cutoff)
	if err != nil {
		s.logger.Warn("Query cache lookup failed, treating as miss",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err),
		)
		return nil
	}
	if msg == nil {
		return nil
	}

	s.logger.Info("Query cache hit",
		zap.String("conversation_id", conversationID.String()),
		zap.String("message_id", msg.ID.String()),
	)

	return &models.CachedAnswer{
		MessageID: msg.ID,
		QueryHash: hash,
		Content:   msg.Content,
		Metadata:  msg.Metadata,
		CreatedAt: msg.CreatedAt,
	}
}

// CacheQueryResponse attaches the question's hash to an already stored
// assistant message. Best-effort: the answer has already been delivered,
// so a failure here is logged and swallowed.
func (s *QueryCacheService) CacheQueryResponse(ctx context.Context, messageID, userID, conversationID uuid.UUID, question string) {
	hash := s.HashQuery(userID, conversationID, question)
	if err := s.messages.SetQueryHash(ctx, messageID, hash); err != nil {
		s.logger.Warn("Failed to cache query response",
			zap.String("message_id", messageID.String()),
			zap.Error(err),
		)
	}
}

// ClearExpiredCache nulls the hash field on messages past the TTL
// window. Conversation history is never deleted, only the cache index.
func (s *QueryCacheService) ClearExpiredCache(ctx context.Context) int64 {
	cutoff := time.Now().Add(-s.ttl)
	count, err := s.messages.ClearExpiredHashes(ctx, cutoff)
	if err != nil {
		s.logger.Warn("Failed to clear expired cache entries", zap.Error(err))
		return 0
	}
	if count > 0 {
		s.logger.Info("Cleared expired cache entries", zap.Int64("count", count))
	}
	return count
}
