package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DylanFeger/askeuno-sub001/internal/models"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// maxPromptRows caps how many data rows are inlined into the prompt.
// The row ceiling on fetches is separate; this protects the context
// window of the model.
const maxPromptRows = 100

type LLMService struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	logger *zap.Logger
}

// Answer is the model's response plus the structured metadata stored
// alongside the assistant message.
type Answer struct {
	Content    string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	FollowUps  []string `json:"follow_ups,omitempty"`
}

func buildSystemInstruction() string {
	return `You are a data analyst assistant for a business analytics platform. Users connect datasets (file uploads, live databases, third-party APIs) and ask questions about them in plain language.

RULES:
1. Answer ONLY from the data rows provided in the prompt. Never invent numbers or records.
2. Rows carry a "_source" field naming the dataset they came from; when data spans several sources, say which source supports each part of the answer.
3. Be concise and concrete: figures, trends, comparisons. No filler.
4. If the provided rows cannot answer the question, say so and suggest what data would be needed.
5. Always respond with a single valid JSON object:
{
  "answer": "the answer text",
  "confidence": 0.0-1.0,
  "follow_ups": ["up to three short follow-up questions the user might ask next"]
}
Return ONLY the JSON object, no markdown fences, no commentary.`
}

func NewLLMService(cfg *config.LLMConfig, logger *zap.Logger) (*LLMService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("LLM TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = buildSystemInstruction()
	model.Temperature = 0.3

	return &LLMService{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// GenerateAnswer asks the model the user's question over the correlated
// rows produced by the planner.
func (s *LLMService) GenerateAnswer(ctx context.Context, question string, plan *models.QueryPlan, data []map[string]any) (*Answer, error) {
	prompt, err := buildAnswerPrompt(question, plan, data)
	if err != nil {
		return nil, err
	}

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	answer := parseAnswer(content)

	s.logger.Info("Answer generated",
		zap.Int("rows_in_prompt", min(len(data), maxPromptRows)),
		zap.Float64("confidence", answer.Confidence),
	)

	return answer, nil
}

func buildAnswerPrompt(question string, plan *models.QueryPlan, data []map[string]any) (string, error) {
	var b strings.Builder

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	if plan != nil {
		fmt.Fprintf(&b, "Query strategy: %s\n", plan.Strategy)
		if plan.Primary != nil {
			fmt.Fprintf(&b, "Primary source: %s (%d rows)\n", plan.Primary.Name, plan.Primary.RowCount)
		}
		if len(plan.Correlations) > 0 {
			b.WriteString("Detected correlation fields:\n")
			for category, fields := range plan.Correlations {
				names := make([]string, 0, len(fields))
				for _, f := range fields {
					names = append(names, f.FieldName)
				}
				fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(names, ", "))
			}
		}
		b.WriteString("\n")
	}

	rows := data
	if len(rows) > maxPromptRows {
		rows = rows[:maxPromptRows]
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to serialize data rows: %w", err)
	}
	fmt.Fprintf(&b, "Data (%d of %d rows):\n%s\n", len(rows), len(data), rowsJSON)

	return b.String(), nil
}

// parseAnswer extracts the JSON object from the model output, tolerating
// markdown fences and stray commentary. Unparseable output falls back to
// the raw text with a low confidence marker.
func parseAnswer(content string) *Answer {
	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")
	if jsonStart != -1 && jsonEnd > jsonStart {
		jsonStr := content[jsonStart : jsonEnd+1]
		var answer Answer
		if err := json.Unmarshal([]byte(jsonStr), &answer); err == nil && answer.Content != "" {
			return &answer
		}
	}

	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	return &Answer{
		Content:    strings.TrimSpace(text),
		Confidence: 0.5,
	}
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
