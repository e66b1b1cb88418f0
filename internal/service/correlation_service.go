package service

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// rowFetcher reads stored rows of file/api backed sources.
type rowFetcher interface {
	FetchRows(ctx context.Context, sourceID uuid.UUID, limit int) ([]map[string]any, error)
}

// liveQuerier executes guarded read-only SQL against database sources.
type liveQuerier interface {
	RunQuery(ctx context.Context, conn models.DatabaseConnection, sql string, limit int) ([]map[string]any, error)
}

// CorrelationService infers joinable fields across heterogeneous data
// sources and plans how a single question spans them. All detection is
// name-pattern heuristics over declared schemas; raw values are never
// inspected.
type CorrelationService struct {
	rows     rowFetcher
	live     liveQuerier
	patterns []correlationPattern
	maxRows  int
	logger   *zap.Logger
}

type correlationPattern struct {
	category string
	re       *regexp.Regexp
}

// patternsFile is the YAML schema for an external pattern table.
type patternsFile struct {
	Patterns []struct {
		Category string `yaml:"category"`
		Pattern  string `yaml:"pattern"`
	} `yaml:"patterns"`
}

// defaultPatternTable maps field-name patterns to semantic categories.
// Matching is case-insensitive against the whole field name. The table
// is deliberately heuristic: "type" mapping to category will misfire on
// unrelated columns, and that behavior is relied upon downstream.
var defaultPatternTable = []struct {
	category string
	pattern  string
}{
	{"product_id", `^(id|_id|product_id|product_code|sku)$`},
	{"customer_id", `^(customer|customer_id|user_id|client_id)$`},
	{"date", `^(date|created_at|timestamp|order_date|sale_date|purchase_date)$`},
	{"campaign_id", `^(campaign|campaign_id|ad_id|marketing_id)$`},
	{"email", `^(email|email_address|customer_email)$`},
	{"location", `^(region|location|store|branch)$`},
	{"category", `^(category|product_category|type)$`},
}

func NewCorrelationService(rows rowFetcher, live liveQuerier, cfg *config.Config, logger *zap.Logger) (*CorrelationService, error) {
	patterns, err := loadPatternTable(cfg.Correlation.PatternsFile)
	if err != nil {
		return nil, err
	}

	return &CorrelationService{
		rows:     rows,
		live:     live,
		patterns: patterns,
		maxRows:  cfg.Query.MaxRows,
		logger:   logger,
	}, nil
}

func loadPatternTable(path string) ([]correlationPattern, error) {
	entries := defaultPatternTable

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read correlation patterns file: %w", err)
		}
		var file patternsFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse correlation patterns file: %w", err)
		}
		if len(file.Patterns) > 0 {
			entries = entries[:0:0]
			for _, p := range file.Patterns {
				entries = append(entries, struct {
					category string
					pattern  string
				}{p.Category, p.Pattern})
			}
		}
	}

	patterns := make([]correlationPattern, 0, len(entries))
	for _, e := range entries {
		re, err := regexp.Compile(`(?i)` + e.pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid correlation pattern %q: %w", e.pattern, err)
		}
		patterns = append(patterns, correlationPattern{category: e.category, re: re})
	}

	return patterns, nil
}

// DetectCorrelatableFields checks every schema field of every source
// against the pattern table and groups matches by category. A field may
// land in several categories when patterns overlap; exclusivity is not
// enforced.
func (s *CorrelationService) DetectCorrelatableFields(sources []*models.DataSource) map[string][]models.CorrelationField {
	result := make(map[string][]models.CorrelationField)

	for _, src := range sources {
		for name, field := range src.Schema {
			for _, p := range s.patterns {
				if p.re.MatchString(name) {
					result[p.category] = append(result[p.category], models.CorrelationField{
						SourceID:  src.ID,
						FieldName: name,
						Kind:      field.Kind,
					})
				}
			}
		}
	}

	return result
}

// join/union keyword families scanned against the lowercased question.
var (
	joinKeywords  = []string{"affect", "impact", "correlat", "relationship", "between"}
	unionKeywords = []string{"total", "overall", "combined", "across all"}
)

// GenerateMultiSourceQueryPlan decides how the question should span the
// given sources. It is a heuristic planner: question keywords choose the
// strategy, the largest source becomes primary (first occurrence wins
// ties), and a missing correlation map degrades to sequential rather
// than failing.
func (s *CorrelationService) GenerateMultiSourceQueryPlan(question string, sources []*models.DataSource) *models.QueryPlan {
	plan := &models.QueryPlan{
		Correlations: s.DetectCorrelatableFields(sources),
		Strategy:     models.StrategySequential,
	}

	q := strings.ToLower(question)
	switch {
	case containsAny(q, joinKeywords):
		plan.Strategy = models.StrategyJoin
	case containsAny(q, unionKeywords):
		plan.Strategy = models.StrategyUnion
	}

	for _, src := range sources {
		if plan.Primary == nil || src.RowCount > plan.Primary.RowCount {
			plan.Primary = src
		}
	}
	for _, src := range sources {
		if plan.Primary != nil && src.ID != plan.Primary.ID {
			plan.Secondary = append(plan.Secondary, src)
		}
	}

	if len(plan.Correlations) == 0 {
		plan.Strategy = models.StrategySequential
	}

	if plan.Primary != nil {
		s.logger.Info("Generated multi-source query plan",
			zap.String("strategy", string(plan.Strategy)),
			zap.String("primary", plan.Primary.Name),
			zap.Int("secondary", len(plan.Secondary)),
			zap.Int("correlation_categories", len(plan.Correlations)),
		)
	}

	return plan
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ExecuteMultiSourceQuery fetches bounded rows from each source in
// parallel, tags every row with its origin under the reserved _source
// key and flattens the result. This is flatten-and-tag stitching, not a
// relational join; the per-source SQL filter is advisory for file and
// api sources. Any per-source failure yields a result with Error set
// and no data, which callers treat as "fall back to single source".
func (s *CorrelationService) ExecuteMultiSourceQuery(ctx context.Context, sources []*models.DataSource, queries map[uuid.UUID]models.SourceQuery) *models.MultiSourceResult {
	result := &models.MultiSourceResult{}
	for _, src := range sources {
		result.Sources = append(result.Sources, models.SourceRef{ID: src.ID, Name: src.Name})
	}

	perSource := make([][]map[string]any, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			limit := s.maxRows
			if q, ok := queries[src.ID]; ok && q.Limit > 0 && q.Limit < limit {
				limit = q.Limit
			}

			rows, err := s.fetchSourceRows(gctx, src, queries[src.ID], limit)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name, err)
			}

			tagged := make([]map[string]any, 0, len(rows))
			for _, row := range rows {
				t := make(map[string]any, len(row)+1)
				for k, v := range row {
					t[k] = v
				}
				t[models.SourceRowTag] = src.Name
				tagged = append(tagged, t)
			}
			perSource[i] = tagged
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("Multi-source query execution failed", zap.Error(err))
		result.Error = err.Error()
		return result
	}

	for _, rows := range perSource {
		result.CorrelatedData = append(result.CorrelatedData, rows...)
	}

	return result
}

func (s *CorrelationService) fetchSourceRows(ctx context.Context, src *models.DataSource, query models.SourceQuery, limit int) ([]map[string]any, error) {
	if src.Type == models.SourceTypeDatabase {
		if src.Connection == nil {
			return nil, fmt.Errorf("database source has no connection config")
		}
		sql := query.SQL
		if sql == "" {
			sql = fmt.Sprintf("SELECT * FROM %s", src.Connection.Table)
		}
		return s.live.RunQuery(ctx, *src.Connection, sql, limit)
	}
	return s.rows.FetchRows(ctx, src.ID, limit)
}
