package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/core"
	"github.com/tmc/langchaingo/llms"
)

// ImageDescriber implements ai.ImageDescriber with a vision-capable chat model.
type ImageDescriber struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.ImageDescriber = (*ImageDescriber)(nil)

func newImageDescriber(config *ai.Config) (*ImageDescriber, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatModel(config)
	if err != nil {
		return nil, err
	}
	return &ImageDescriber{
		client: client,
		logger: slog.Default().With("component", "openai-describer"),
	}, nil
}

// NewImageDescriber creates a vision describer using the provided configuration.
func NewImageDescriber(config *ai.Config) (ai.ImageDescriber, error) {
	return newImageDescriber(config)
}

// DescribeImage asks the model for a structured analysis of the image.
func (d *ImageDescriber) DescribeImage(ctx context.Context, imageURL, hint string) (*core.ImageAnalysis, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildImagePrompt(hint)),
				llms.ImageURLPart(imageURL),
			},
		},
	}

	var analysis core.ImageAnalysis
	if err := generateJSON(ctx, d.client, d.logger, content, &analysis); err != nil {
		return nil, err
	}
	if analysis.ImageType == "" {
		analysis.ImageType = core.ImageTypeImage
	}
	d.logger.Debug("described image", "type", analysis.ImageType, "charts", len(analysis.ImageData.ChartData))
	return &analysis, nil
}
