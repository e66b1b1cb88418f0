package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantContent    string
		wantConfidence float64
		wantFollowUps  int
	}{
		{
			name:           "clean json",
			content:        `{"answer": "revenue is 42", "confidence": 0.9, "follow_ups": ["by region?"]}`,
			wantContent:    "revenue is 42",
			wantConfidence: 0.9,
			wantFollowUps:  1,
		},
		{
			name:           "json wrapped in fences",
			content:        "```json\n{\"answer\": \"revenue is 42\", \"confidence\": 0.8}\n```",
			wantContent:    "revenue is 42",
			wantConfidence: 0.8,
		},
		{
			name:           "json with commentary around it",
			content:        "Here is the result: {\"answer\": \"up 12%\", \"confidence\": 0.7} hope that helps",
			wantContent:    "up 12%",
			wantConfidence: 0.7,
		},
		{
			name:           "plain text fallback",
			content:        "Revenue went up last month.",
			wantContent:    "Revenue went up last month.",
			wantConfidence: 0.5,
		},
		{
			name:           "broken json falls back to raw text",
			content:        `{"answer": "trunca`,
			wantContent:    `{"answer": "trunca`,
			wantConfidence: 0.5,
		},
		{
			name:           "json missing the answer field falls back",
			content:        `{"confidence": 0.9}`,
			wantContent:    `{"confidence": 0.9}`,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAnswer(tt.content)
			if got.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", got.Content, tt.wantContent)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if len(got.FollowUps) != tt.wantFollowUps {
				t.Errorf("follow-ups = %d, want %d", len(got.FollowUps), tt.wantFollowUps)
			}
		})
	}
}

func TestBuildAnswerPromptCapsRows(t *testing.T) {
	var data []map[string]any
	for i := 0; i < maxPromptRows+50; i++ {
		data = append(data, map[string]any{"n": i})
	}

	prompt, err := buildAnswerPrompt("how many?", nil, data)
	if err != nil {
		t.Fatalf("buildAnswerPrompt: %v", err)
	}
	want := fmt.Sprintf("Data (%d of %d rows):", maxPromptRows, maxPromptRows+50)
	if !strings.Contains(prompt, want) {
		t.Errorf("prompt should report the capped row count %q", want)
	}
}

func TestBuildAnswerPromptIncludesPlan(t *testing.T) {
	src := fileSource("sales", 100, "user_id")
	plan := &models.QueryPlan{
		Primary:  src,
		Strategy: models.StrategyJoin,
		Correlations: map[string][]models.CorrelationField{
			"customer_id": {{SourceID: src.ID, FieldName: "user_id", Kind: models.FieldKindString}},
		},
	}

	prompt, err := buildAnswerPrompt("how did ads affect sales?", plan, nil)
	if err != nil {
		t.Fatalf("buildAnswerPrompt: %v", err)
	}
	for _, want := range []string{"Query strategy: join", "Primary source: sales (100 rows)", "customer_id: user_id"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
