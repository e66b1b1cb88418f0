package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeRowFetcher struct {
	rows map[uuid.UUID][]map[string]any
	errs map[uuid.UUID]error
}

func (f *fakeRowFetcher) FetchRows(_ context.Context, sourceID uuid.UUID, limit int) ([]map[string]any, error) {
	if err := f.errs[sourceID]; err != nil {
		return nil, err
	}
	rows := f.rows[sourceID]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeLiveQuerier struct {
	rows    []map[string]any
	lastSQL string
}

func (f *fakeLiveQuerier) RunQuery(_ context.Context, _ models.DatabaseConnection, sql string, limit int) ([]map[string]any, error) {
	f.lastSQL = sql
	rows := f.rows
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func newTestCorrelation(t *testing.T, rows rowFetcher, live liveQuerier) *CorrelationService {
	t.Helper()
	cfg := &config.Config{}
	cfg.Query.MaxRows = 5000
	svc, err := NewCorrelationService(rows, live, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCorrelationService: %v", err)
	}
	return svc
}

func fileSource(name string, rowCount int64, fields ...string) *models.DataSource {
	schema := make(models.Schema, len(fields))
	for _, f := range fields {
		schema[f] = models.FieldDef{Name: f, Kind: models.FieldKindString}
	}
	return &models.DataSource{
		ID:       uuid.New(),
		Name:     name,
		Type:     models.SourceTypeFile,
		Schema:   schema,
		RowCount: rowCount,
		Status:   models.SourceStatusActive,
	}
}

func TestDetectCorrelatableFields(t *testing.T) {
	svc := newTestCorrelation(t, &fakeRowFetcher{}, nil)

	sales := fileSource("sales", 100, "user_id", "order_date", "amount")
	ads := fileSource("ads", 50, "customer_id", "user_id", "purchase_date", "spend")

	got := svc.DetectCorrelatableFields([]*models.DataSource{sales, ads})

	if len(got["customer_id"]) != 3 {
		t.Errorf("customer_id category: got %d fields, want 3 (user_id in both plus customer_id)", len(got["customer_id"]))
	}
	if len(got["date"]) != 2 {
		t.Errorf("date category: got %d fields, want 2 (order_date and purchase_date)", len(got["date"]))
	}
	if _, ok := got["email"]; ok {
		t.Error("no email-like field exists, category must be absent")
	}

	// Detection is deterministic over the same schemas
	again := svc.DetectCorrelatableFields([]*models.DataSource{sales, ads})
	if len(again) != len(got) {
		t.Errorf("repeated detection diverged: %d vs %d categories", len(again), len(got))
	}
}

func TestDetectCorrelatableFieldsCaseInsensitive(t *testing.T) {
	svc := newTestCorrelation(t, &fakeRowFetcher{}, nil)
	src := fileSource("crm", 10, "CUSTOMER_ID", "Email")

	got := svc.DetectCorrelatableFields([]*models.DataSource{src})
	if len(got["customer_id"]) != 1 {
		t.Error("CUSTOMER_ID should match the customer_id pattern")
	}
	if len(got["email"]) != 1 {
		t.Error("Email should match the email pattern")
	}
}

func TestDetectCorrelatableFieldsRequiresWholeName(t *testing.T) {
	svc := newTestCorrelation(t, &fakeRowFetcher{}, nil)
	src := fileSource("misc", 10, "customer_identifier", "update_date_note")

	got := svc.DetectCorrelatableFields([]*models.DataSource{src})
	if len(got) != 0 {
		t.Errorf("substring-only matches must not correlate, got %v", got)
	}
}

func TestQueryPlanStrategySelection(t *testing.T) {
	svc := newTestCorrelation(t, &fakeRowFetcher{}, nil)

	sales := fileSource("sales", 100, "user_id", "order_date")
	ads := fileSource("ads", 50, "customer_id", "campaign")
	sources := []*models.DataSource{sales, ads}

	tests := []struct {
		question string
		want     models.QueryStrategy
	}{
		{"How did Facebook ads affect my sales?", models.StrategyJoin},
		{"Is there a relationship between spend and revenue?", models.StrategyJoin},
		{"What is the correlation here?", models.StrategyJoin},
		{"What's my total revenue across all sources?", models.StrategyUnion},
		{"Show me the overall picture", models.StrategyUnion},
		{"Show me last month's sales", models.StrategySequential},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			plan := svc.GenerateMultiSourceQueryPlan(tt.question, sources)
			if plan.Strategy != tt.want {
				t.Errorf("strategy for %q: got %s, want %s", tt.question, plan.Strategy, tt.want)
			}
		})
	}
}

func TestQueryPlanJoinNeedsCorrelations(t *testing.T) {
	svc := newTestCorrelation(t, &fakeRowFetcher{}, nil)

	// No correlatable fields anywhere, join wording notwithstanding
	a := fileSource("a", 10, "foo")
	b := fileSource("b", 20, "bar")

	plan := svc.GenerateMultiSourceQueryPlan("how does foo affect bar", []*models.DataSource{a, b})
	if plan.Strategy != models.StrategySequential {
		t.Errorf("plan without correlations must degrade to sequential, got %s", plan.Strategy)
	}
	if len(plan.Correlations) != 0 {
		t.Errorf("unexpected correlations: %v", plan.Correlations)
	}
}

func TestQueryPlanPrimarySelection(t *testing.T) {
	svc := newTestCorrelation(t, &fakeRowFetcher{}, nil)

	small := fileSource("small", 10, "user_id")
	first := fileSource("first", 50, "user_id")
	second := fileSource("second", 50, "user_id")

	plan := svc.GenerateMultiSourceQueryPlan("anything", []*models.DataSource{small, first, second})
	if plan.Primary == nil || plan.Primary.ID != first.ID {
		t.Fatalf("primary should be the first source with the max row count, got %+v", plan.Primary)
	}
	if len(plan.Secondary) != 2 {
		t.Fatalf("expected 2 secondary sources, got %d", len(plan.Secondary))
	}
	for _, src := range plan.Secondary {
		if src.ID == first.ID {
			t.Error("primary must not appear among secondaries")
		}
	}
}

func TestExecuteMultiSourceQueryTagsAndFlattens(t *testing.T) {
	sales := fileSource("sales", 2, "user_id")
	ads := fileSource("ads", 1, "customer_id")

	fetcher := &fakeRowFetcher{rows: map[uuid.UUID][]map[string]any{
		sales.ID: {
			{"user_id": "u1", "amount": 10},
			{"user_id": "u2", "amount": 20},
		},
		ads.ID: {
			{"customer_id": "u1", "spend": 5},
		},
	}}
	svc := newTestCorrelation(t, fetcher, nil)

	result := svc.ExecuteMultiSourceQuery(context.Background(), []*models.DataSource{sales, ads}, nil)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 source refs, got %d", len(result.Sources))
	}
	if len(result.CorrelatedData) != 3 {
		t.Fatalf("expected 3 flattened rows, got %d", len(result.CorrelatedData))
	}

	// Rows keep source order and carry the origin tag
	if result.CorrelatedData[0][models.SourceRowTag] != "sales" {
		t.Errorf("first row tagged %v, want sales", result.CorrelatedData[0][models.SourceRowTag])
	}
	if result.CorrelatedData[2][models.SourceRowTag] != "ads" {
		t.Errorf("last row tagged %v, want ads", result.CorrelatedData[2][models.SourceRowTag])
	}
	for i, row := range result.CorrelatedData {
		if _, ok := row[models.SourceRowTag]; !ok {
			t.Errorf("row %d is missing the origin tag", i)
		}
	}
}

func TestExecuteMultiSourceQueryDoesNotMutateStoredRows(t *testing.T) {
	src := fileSource("sales", 1, "user_id")
	stored := map[string]any{"user_id": "u1"}
	fetcher := &fakeRowFetcher{rows: map[uuid.UUID][]map[string]any{
		src.ID: {stored},
	}}
	svc := newTestCorrelation(t, fetcher, nil)

	svc.ExecuteMultiSourceQuery(context.Background(), []*models.DataSource{src}, nil)
	if _, ok := stored[models.SourceRowTag]; ok {
		t.Error("tagging must copy rows, not write into the fetcher's data")
	}
}

func TestExecuteMultiSourceQueryFailure(t *testing.T) {
	ok := fileSource("ok", 1, "user_id")
	broken := fileSource("broken", 1, "user_id")

	fetcher := &fakeRowFetcher{
		rows: map[uuid.UUID][]map[string]any{
			ok.ID: {{"user_id": "u1"}},
		},
		errs: map[uuid.UUID]error{
			broken.ID: errors.New("connection refused"),
		},
	}
	svc := newTestCorrelation(t, fetcher, nil)

	result := svc.ExecuteMultiSourceQuery(context.Background(), []*models.DataSource{ok, broken}, nil)
	if result.Error == "" {
		t.Fatal("a failing source must surface an error")
	}
	if result.CorrelatedData != nil {
		t.Error("a failed execution must not return partial data")
	}
	if len(result.Sources) != 2 {
		t.Error("source refs are reported even on failure")
	}
}

func TestExecuteMultiSourceQueryLimit(t *testing.T) {
	src := fileSource("big", 10, "user_id")
	var rows []map[string]any
	for i := 0; i < 10; i++ {
		rows = append(rows, map[string]any{"user_id": fmt.Sprintf("u%d", i)})
	}
	fetcher := &fakeRowFetcher{rows: map[uuid.UUID][]map[string]any{src.ID: rows}}
	svc := newTestCorrelation(t, fetcher, nil)

	queries := map[uuid.UUID]models.SourceQuery{
		src.ID: {Limit: 3},
	}
	result := svc.ExecuteMultiSourceQuery(context.Background(), []*models.DataSource{src}, queries)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if len(result.CorrelatedData) != 3 {
		t.Errorf("per-source limit not honored: got %d rows, want 3", len(result.CorrelatedData))
	}
}

func TestExecuteMultiSourceQueryDatabaseSource(t *testing.T) {
	db := &models.DataSource{
		ID:   uuid.New(),
		Name: "warehouse",
		Type: models.SourceTypeDatabase,
		Schema: models.Schema{
			"customer_id": {Name: "customer_id", Kind: models.FieldKindString},
		},
		Connection: &models.DatabaseConnection{
			Host: "localhost", Port: "5432", User: "ro", DBName: "dw", Table: "orders",
		},
		RowCount: 100,
	}

	live := &fakeLiveQuerier{rows: []map[string]any{{"customer_id": "u1"}}}
	svc := newTestCorrelation(t, &fakeRowFetcher{}, live)

	result := svc.ExecuteMultiSourceQuery(context.Background(), []*models.DataSource{db}, nil)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if live.lastSQL != "SELECT * FROM orders" {
		t.Errorf("default query should select from the configured table, got %q", live.lastSQL)
	}
	if result.CorrelatedData[0][models.SourceRowTag] != "warehouse" {
		t.Error("database rows carry the origin tag too")
	}
}

func TestLoadPatternTableOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	raw := "patterns:\n  - category: device\n    pattern: ^(device_id|imei)$\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Query.MaxRows = 5000
	cfg.Correlation.PatternsFile = path

	svc, err := NewCorrelationService(&fakeRowFetcher{}, nil, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCorrelationService: %v", err)
	}

	src := fileSource("devices", 10, "device_id", "user_id")
	got := svc.DetectCorrelatableFields([]*models.DataSource{src})
	if len(got["device"]) != 1 {
		t.Error("override pattern should match device_id")
	}
	if _, ok := got["customer_id"]; ok {
		t.Error("an override file replaces the built-in table")
	}
}
