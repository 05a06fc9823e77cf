package openai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/docsift/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// jsonAttempts bounds how often a malformed model reply is regenerated.
const jsonAttempts = 3

func newChatModel(config *ai.Config) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
}

// generateJSON sends content to the model in JSON mode and decodes the reply
// into out. Unparseable replies are regenerated up to jsonAttempts times.
// Transport errors are returned immediately.
func generateJSON(ctx context.Context, client llms.Model, logger *slog.Logger, content []llms.MessageContent, out any) error {
	var lastErr error
	for attempt := 0; attempt < jsonAttempts; attempt++ {
		response, err := client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyResponse
		}

		text := repairJSON(stripCodeFence(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(text), out); err != nil {
			lastErr = err
			logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", text,
				"err", err)
			continue
		}
		return nil
	}

	logger.Error("failed to parse model response after retries", "err", lastErr)
	return lastErr
}
