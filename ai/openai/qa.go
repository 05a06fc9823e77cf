package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/docsift/ai"
	"github.com/tmc/langchaingo/llms"
)

// QAExtractor implements ai.QAExtractor using OpenAI-compatible chat APIs.
type QAExtractor struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.QAExtractor = (*QAExtractor)(nil)

type qaReference struct {
	Section string `json:"section"`
}

type qaItem struct {
	Question   string      `json:"question"`
	Answer     string      `json:"answer"`
	SourceType string      `json:"source_type"`
	Reference  qaReference `json:"reference"`
}

type qaResponse struct {
	CuratedQAs []qaItem `json:"curated_qas"`
}

func newQAExtractor(config *ai.Config) (*QAExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatModel(config)
	if err != nil {
		return nil, err
	}
	return &QAExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-qa"),
	}, nil
}

// NewQAExtractor creates a curated Q&A extractor using the provided configuration.
func NewQAExtractor(config *ai.Config) (ai.QAExtractor, error) {
	return newQAExtractor(config)
}

// ExtractQAs pulls question/answer pairs out of content. Pairs missing either
// side are dropped and unknown source types are reported as text.
func (e *QAExtractor) ExtractQAs(ctx context.Context, content string) ([]ai.ExtractedQA, error) {
	if strings.TrimSpace(content) == "" {
		return []ai.ExtractedQA{}, nil
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildQAPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(content)},
		},
	}

	var result qaResponse
	if err := generateJSON(ctx, e.client, e.logger, messages, &result); err != nil {
		return nil, err
	}

	extracted := make([]ai.ExtractedQA, 0, len(result.CuratedQAs))
	for _, item := range result.CuratedQAs {
		q := strings.TrimSpace(item.Question)
		a := strings.TrimSpace(item.Answer)
		if q == "" || a == "" {
			continue
		}
		extracted = append(extracted, ai.ExtractedQA{
			Question:   q,
			Answer:     a,
			SourceType: normalizeSourceType(item.SourceType),
			Reference:  item.Reference.Section,
		})
	}

	e.logger.Debug("extracted q&a pairs", "total", len(result.CuratedQAs), "kept", len(extracted))
	return extracted, nil
}

func normalizeSourceType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return "table"
	case "image":
		return "image"
	default:
		return "text"
	}
}
