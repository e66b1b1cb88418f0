package models

import "github.com/google/uuid"

// QueryStrategy is how the planner combines data from multiple sources.
type QueryStrategy string

const (
	StrategyJoin       QueryStrategy = "join"
	StrategyUnion      QueryStrategy = "union"
	StrategySequential QueryStrategy = "sequential"
)

// CorrelationField marks one source field as belonging to a semantic
// category (customer_id, date, ...). Computed fresh per planning call,
// never persisted.
type CorrelationField struct {
	SourceID  uuid.UUID `json:"source_id"`
	FieldName string    `json:"field_name"`
	Kind      FieldKind `json:"kind"`
}

// QueryPlan is the planner's decision for a single question. Consumed
// immediately, then discarded.
type QueryPlan struct {
	Primary      *DataSource
	Secondary    []*DataSource
	Correlations map[string][]CorrelationField
	Strategy     QueryStrategy
}

// SourceQuery describes the per-source read issued during execution.
// SQL is honored only for database sources, after the read-only guard;
// file and api sources are read from their stored row table directly.
type SourceQuery struct {
	SQL   string
	Limit int
}

// SourceRef identifies one source that contributed to a result.
type SourceRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// SourceRowTag is the reserved key marking each combined row with the
// name of the source it came from.
const SourceRowTag = "_source"

// MultiSourceResult is the stitched output of a multi-source execution.
// When Error is set, CorrelatedData is absent and callers fall back to
// single-source behavior.
type MultiSourceResult struct {
	Sources        []SourceRef      `json:"sources"`
	CorrelatedData []map[string]any `json:"correlated_data,omitempty"`
	Error          string           `json:"error,omitempty"`
}
