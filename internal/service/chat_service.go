package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNoDataSource         = errors.New("no data source attached to this conversation")
	ErrTooManySources       = errors.New("source count exceeds subscription tier limit")
	ErrQueryLimitReached    = errors.New("hourly query limit reached for subscription tier")
)

type answerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, plan *models.QueryPlan, data []map[string]any) (*Answer, error)
}

type chatMessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	CountUserMessagesSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
}

type conversationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListSourceIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

type sourceStore interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.DataSource, error)
}

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ChatService orchestrates one chat turn: tier checks, cache lookup,
// planning, execution, answer generation and persistence.
type ChatService struct {
	cache         *QueryCacheService
	planner       *CorrelationService
	tiers         *TierService
	llm           answerGenerator
	messages      chatMessageStore
	conversations conversationStore
	sources       sourceStore
	users         userStore
	logger        *zap.Logger
}

func NewChatService(
	cache *QueryCacheService,
	planner *CorrelationService,
	tiers *TierService,
	llm answerGenerator,
	messages chatMessageStore,
	conversations conversationStore,
	sources sourceStore,
	users userStore,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		cache:         cache,
		planner:       planner,
		tiers:         tiers,
		llm:           llm,
		messages:      messages,
		conversations: conversations,
		sources:       sources,
		users:         users,
		logger:        logger,
	}
}

// ChatResult is one answered chat turn.
type ChatResult struct {
	ConversationID uuid.UUID         `json:"conversation_id"`
	MessageID      uuid.UUID         `json:"message_id"`
	Answer         string            `json:"answer"`
	Confidence     float64           `json:"confidence"`
	FollowUps      []string          `json:"follow_ups,omitempty"`
	Strategy       string            `json:"strategy,omitempty"`
	Sources        []models.SourceRef `json:"sources"`
	Cached         bool              `json:"cached"`
}

// Ask answers one question in a conversation.
func (s *ChatService) Ask(ctx context.Context, userID, conversationID uuid.UUID, question string) (*ChatResult, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil || conv == nil || conv.UserID != userID {
		return nil, ErrConversationNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	policy := s.tiers.Policy(user.Tier)

	sourceIDs, err := s.conversations.ListSourceIDs(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(sourceIDs) == 0 {
		return nil, ErrNoDataSource
	}
	if len(sourceIDs) > policy.MaxSources {
		return nil, ErrTooManySources
	}

	if policy.QueriesPerHour > 0 {
		count, err := s.messages.CountUserMessagesSince(ctx, userID, time.Now().Add(-time.Hour))
		if err != nil {
			// Counting failures must not block the user's question
			s.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
		} else if count >= int64(policy.QueriesPerHour) {
			return nil, ErrQueryLimitReached
		}
	}

	// Cheap, deterministic path first
	if cached := s.cache.GetCachedResponse(ctx, userID, conversationID, question); cached != nil {
		result := &ChatResult{
			ConversationID: conversationID,
			MessageID:      cached.MessageID,
			Answer:         cached.Content,
			Cached:         true,
		}
		applyMetadata(result, cached.Metadata)
		return result, nil
	}

	sources, err := s.sources.ListByIDs(ctx, sourceIDs)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoDataSource
	}

	plan := s.planner.GenerateMultiSourceQueryPlan(question, sources)
	result := s.planner.ExecuteMultiSourceQuery(ctx, sources, nil)
	if result.Error != "" && plan.Primary != nil {
		// Degrade to primary-source-only rather than failing the question
		s.logger.Warn("Multi-source execution failed, falling back to primary source",
			zap.String("primary", plan.Primary.Name),
			zap.String("error", result.Error),
		)
		result = s.planner.ExecuteMultiSourceQuery(ctx, []*models.DataSource{plan.Primary}, nil)
	}
	if result.Error != "" {
		s.logger.Error("Source query failed after primary-only fallback",
			zap.String("conversation_id", conversationID.String()),
			zap.String("error", result.Error),
		)
		return nil, fmt.Errorf("failed to query data sources: %s", result.Error)
	}

	answer, err := s.llm.GenerateAnswer(ctx, question, plan, result.CorrelatedData)
	if err != nil {
		return nil, err
	}

	if policy.MaxResponseWords > 0 {
		answer.Content = truncateWords(answer.Content, policy.MaxResponseWords)
	}

	now := time.Now()
	userMsg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.RoleUser,
		Content:        question,
		Metadata:       "{}",
		CreatedAt:      now,
	}
	if err := s.messages.Append(ctx, userMsg); err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(answer)
	assistantMsg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.RoleAssistant,
		Content:        answer.Content,
		Metadata:       string(metadata),
		CreatedAt:      now,
	}
	if err := s.messages.Append(ctx, assistantMsg); err != nil {
		return nil, err
	}

	// Best-effort, only after the message is durably stored
	s.cache.CacheQueryResponse(ctx, assistantMsg.ID, userID, conversationID, question)

	return &ChatResult{
		ConversationID: conversationID,
		MessageID:      assistantMsg.ID,
		Answer:         answer.Content,
		Confidence:     answer.Confidence,
		FollowUps:      answer.FollowUps,
		Strategy:       string(plan.Strategy),
		Sources:        result.Sources,
	}, nil
}

func applyMetadata(result *ChatResult, metadata string) {
	if metadata == "" {
		return
	}
	var answer Answer
	if err := json.Unmarshal([]byte(metadata), &answer); err != nil {
		return
	}
	result.Confidence = answer.Confidence
	result.FollowUps = answer.FollowUps
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "…"
}
