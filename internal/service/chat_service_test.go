package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeChatStore struct {
	fakeMessageStore
}

func (f *fakeChatStore) Append(_ context.Context, msg *models.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatStore) CountUserMessagesSince(_ context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.UserID == userID && m.Role == models.RoleUser && !m.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

type fakeConversationStore struct {
	conversations map[uuid.UUID]*models.Conversation
	sourceIDs     map[uuid.UUID][]uuid.UUID
}

func (f *fakeConversationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	return f.conversations[id], nil
}

func (f *fakeConversationStore) ListSourceIDs(_ context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	return f.sourceIDs[conversationID], nil
}

type fakeSourceStore struct {
	sources map[uuid.UUID]*models.DataSource
}

func (f *fakeSourceStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*models.DataSource, error) {
	var out []*models.DataSource
	for _, id := range ids {
		if src, ok := f.sources[id]; ok {
			out = append(out, src)
		}
	}
	return out, nil
}

type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

type fakeAnswerGenerator struct {
	answer *Answer
	err    error
	calls  int
}

func (f *fakeAnswerGenerator) GenerateAnswer(_ context.Context, _ string, _ *models.QueryPlan, _ []map[string]any) (*Answer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type chatFixture struct {
	svc      *ChatService
	store    *fakeChatStore
	llm      *fakeAnswerGenerator
	fetcher  *fakeRowFetcher
	userID   uuid.UUID
	convID   uuid.UUID
	sourceID uuid.UUID
}

func newChatFixture(t *testing.T, tier models.SubscriptionTier, sourceCount int) *chatFixture {
	t.Helper()

	userID := uuid.New()
	convID := uuid.New()

	store := &fakeChatStore{}
	cache := newTestCache(t, &store.fakeMessageStore, time.Hour)

	fetcher := &fakeRowFetcher{rows: map[uuid.UUID][]map[string]any{}}
	planner := newTestCorrelation(t, fetcher, nil)

	tiers := newTestTiers()
	llm := &fakeAnswerGenerator{answer: &Answer{
		Content:    "your revenue is 42",
		Confidence: 0.9,
		FollowUps:  []string{"break it down by region?"},
	}}

	convStore := &fakeConversationStore{
		conversations: map[uuid.UUID]*models.Conversation{
			convID: {ID: convID, UserID: userID, Title: "test"},
		},
		sourceIDs: map[uuid.UUID][]uuid.UUID{},
	}
	srcStore := &fakeSourceStore{sources: map[uuid.UUID]*models.DataSource{}}

	var firstSource uuid.UUID
	for i := 0; i < sourceCount; i++ {
		src := fileSource("source", 10, "user_id", "order_date")
		if i == 0 {
			firstSource = src.ID
		}
		srcStore.sources[src.ID] = src
		convStore.sourceIDs[convID] = append(convStore.sourceIDs[convID], src.ID)
		fetcher.rows[src.ID] = []map[string]any{{"user_id": "u1", "amount": 10}}
	}

	users := &fakeUserStore{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Email: "t@example.com", Tier: tier},
	}}

	svc := NewChatService(cache, planner, tiers, llm, store, convStore, srcStore, users, zap.NewNop())
	return &chatFixture{
		svc: svc, store: store, llm: llm, fetcher: fetcher,
		userID: userID, convID: convID, sourceID: firstSource,
	}
}

func TestAskAnswersAndPersists(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 2)

	result, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "How did ads affect sales?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Cached {
		t.Error("first ask cannot be a cache hit")
	}
	if result.Answer != "your revenue is 42" {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if result.Strategy != string(models.StrategyJoin) {
		t.Errorf("strategy = %q, want join", result.Strategy)
	}
	if len(result.Sources) != 2 {
		t.Errorf("expected 2 source refs, got %d", len(result.Sources))
	}

	// One user message and one assistant message, hash set on the latter
	if len(fx.store.messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(fx.store.messages))
	}
	assistant := fx.store.messages[1]
	if assistant.Role != models.RoleAssistant {
		t.Fatalf("second message role = %s", assistant.Role)
	}
	if assistant.QueryHash == nil {
		t.Error("assistant message should carry the query hash")
	}
}

func TestAskServesCachedAnswer(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 1)
	ctx := context.Background()

	first, err := fx.svc.Ask(ctx, fx.userID, fx.convID, "What's my revenue?")
	if err != nil {
		t.Fatalf("first Ask: %v", err)
	}

	second, err := fx.svc.Ask(ctx, fx.userID, fx.convID, "  what's my   revenue ")
	if err != nil {
		t.Fatalf("second Ask: %v", err)
	}
	if !second.Cached {
		t.Fatal("normalized repeat of the question must hit the cache")
	}
	if second.MessageID != first.MessageID {
		t.Error("cached result should reference the original assistant message")
	}
	if second.Answer != first.Answer {
		t.Error("cached answer content diverged")
	}
	if second.Confidence != first.Confidence {
		t.Error("cached metadata should restore the confidence score")
	}
	if fx.llm.calls != 1 {
		t.Errorf("cache hit must not invoke the model, got %d calls", fx.llm.calls)
	}
	// The cached turn appends nothing
	if len(fx.store.messages) != 2 {
		t.Errorf("cached turn persisted messages: got %d, want 2", len(fx.store.messages))
	}
}

func TestAskRejectsForeignConversation(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 1)

	_, err := fx.svc.Ask(context.Background(), uuid.New(), fx.convID, "hi")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("another user's conversation: got %v, want ErrConversationNotFound", err)
	}

	_, err = fx.svc.Ask(context.Background(), fx.userID, uuid.New(), "hi")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("unknown conversation: got %v, want ErrConversationNotFound", err)
	}
}

func TestAskRequiresDataSource(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 0)

	_, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "hi")
	if !errors.Is(err, ErrNoDataSource) {
		t.Errorf("got %v, want ErrNoDataSource", err)
	}
}

func TestAskEnforcesTierSourceCeiling(t *testing.T) {
	fx := newChatFixture(t, models.TierStarter, 2)

	_, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "hi")
	if !errors.Is(err, ErrTooManySources) {
		t.Errorf("starter with 2 sources: got %v, want ErrTooManySources", err)
	}
}

func TestAskEnforcesRateLimit(t *testing.T) {
	fx := newChatFixture(t, models.TierStarter, 1)
	ctx := context.Background()

	// Starter allows 20 questions per hour
	for i := 0; i < 20; i++ {
		fx.store.messages = append(fx.store.messages, &models.Message{
			ID: uuid.New(), ConversationID: fx.convID, UserID: fx.userID,
			Role: models.RoleUser, Content: "q", CreatedAt: time.Now().Add(-time.Minute),
		})
	}

	_, err := fx.svc.Ask(ctx, fx.userID, fx.convID, "one more")
	if !errors.Is(err, ErrQueryLimitReached) {
		t.Errorf("got %v, want ErrQueryLimitReached", err)
	}
}

func TestAskUnlimitedTierSkipsRateLimit(t *testing.T) {
	fx := newChatFixture(t, models.TierEnterprise, 1)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		fx.store.messages = append(fx.store.messages, &models.Message{
			ID: uuid.New(), ConversationID: fx.convID, UserID: fx.userID,
			Role: models.RoleUser, Content: "q", CreatedAt: time.Now().Add(-time.Minute),
		})
	}

	if _, err := fx.svc.Ask(ctx, fx.userID, fx.convID, "still fine"); err != nil {
		t.Errorf("enterprise has no hourly cap, got %v", err)
	}
}

func TestAskFallsBackToPrimaryOnExecutionFailure(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 2)

	// Break the secondary source; primary selection is first-wins on equal counts
	ids := []uuid.UUID{}
	for id := range fx.fetcher.rows {
		ids = append(ids, id)
	}
	var secondary uuid.UUID
	for _, id := range ids {
		if id != fx.sourceID {
			secondary = id
		}
	}
	fx.fetcher.errs = map[uuid.UUID]error{secondary: errors.New("fetch failed")}

	result, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "what happened")
	if err != nil {
		t.Fatalf("Ask should degrade, not fail: %v", err)
	}
	if len(result.Sources) != 1 {
		t.Errorf("fallback result should cover the primary source only, got %d refs", len(result.Sources))
	}
}

func TestAskFailsWhenPrimarySourceAlsoFails(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 1)
	fx.fetcher.errs = map[uuid.UUID]error{fx.sourceID: errors.New("fetch failed")}

	if _, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "what happened"); err == nil {
		t.Fatal("expected an error when the primary source cannot be read")
	}
	if fx.llm.calls != 0 {
		t.Errorf("model must not be invoked without data, got %d calls", fx.llm.calls)
	}
	if len(fx.store.messages) != 0 {
		t.Error("a failed turn must not persist messages")
	}
}

func TestAskCapsResponseWords(t *testing.T) {
	fx := newChatFixture(t, models.TierStarter, 1)
	fx.llm.answer = &Answer{
		Content:    strings.Repeat("word ", 200),
		Confidence: 0.8,
	}

	result, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "long answer please")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	// Starter caps at 80 words
	if got := len(strings.Fields(result.Answer)); got > 81 {
		t.Errorf("starter answer length = %d words, want at most 80 plus ellipsis", got)
	}
}

func TestAskPropagatesModelFailure(t *testing.T) {
	fx := newChatFixture(t, models.TierProfessional, 1)
	fx.llm.err = errors.New("model unavailable")

	if _, err := fx.svc.Ask(context.Background(), fx.userID, fx.convID, "hi"); err == nil {
		t.Fatal("model failures must surface to the caller")
	}
	if len(fx.store.messages) != 0 {
		t.Error("a failed turn must not persist messages")
	}
}
