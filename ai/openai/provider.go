// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/ai/sdk"
)

var _ ai.AIProvider = (*Provider)(nil)

// Provider serves embeddings, image descriptions and Q&A extraction from
// OpenAI-compatible endpoints.
type Provider struct {
	embedder  ai.Embedder
	describer *ImageDescriber
	extractor *QAExtractor
	logger    *slog.Logger
}

// NewProvider validates config and builds the three services. Fan-out
// embedding goes through the official SDK client, batch embedding through
// langchaingo.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Provider{
		logger: slog.Default().With("component", "openai-provider"),
	}

	var err error
	switch config.EmbeddingMode {
	case ai.EmbeddingModeFanOut:
		p.embedder, err = sdk.NewEmbedder(config)
	default:
		p.embedder, err = newEmbedder(config)
	}
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if p.describer, err = newImageDescriber(config); err != nil {
		return nil, fmt.Errorf("image describer: %w", err)
	}
	if p.extractor, err = newQAExtractor(config); err != nil {
		return nil, fmt.Errorf("qa extractor: %w", err)
	}

	p.logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"chat_host", config.ChatHost,
		"embedding_model", config.EmbeddingModel,
		"embedding_mode", config.EmbeddingMode,
		"chat_model", config.ChatModel)
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder             { return p.embedder }
func (p *Provider) ImageDescriber() ai.ImageDescriber { return p.describer }
func (p *Provider) QAExtractor() ai.QAExtractor       { return p.extractor }

// Close is a no-op; the HTTP clients hold no resources that need releasing.
func (p *Provider) Close() error {
	return nil
}
