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


package ai

import (
	"errors"
	"strings"
)

// EmbeddingMode selects how document batches are sent to the embedding service.
type EmbeddingMode string

const (
	// EmbeddingModeBatch sends a whole batch in one request.
	EmbeddingModeBatch EmbeddingMode = "batch"

	// EmbeddingModeFanOut sends one request per document, for services with
	// strict per-call document limits.
	EmbeddingModeFanOut EmbeddingMode = "fanout"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the vision and Q&A model API.
	ChatHost string

	// APIKey authenticates against both hosts. Local servers accept "none".
	APIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimensions requests a specific vector size when the model
	// supports it. Zero keeps the model default.
	EmbeddingDimensions int

	// EmbeddingMode selects batch or fan-out embedding calls.
	// Default: EmbeddingModeBatch
	EmbeddingMode EmbeddingMode

	// FanOutConcurrency bounds in-flight requests per batch in fan-out mode.
	// Default: 5
	FanOutConcurrency int

	// ChatModel is the vision-capable model used for images and Q&A.
	// Example: "qwen2.5vl:7b", "gpt-4o-mini"
	ChatModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimensions sets the requested vector size.
func WithEmbeddingDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dims
	}
}

// WithEmbeddingMode selects batch or fan-out embedding.
func WithEmbeddingMode(mode EmbeddingMode) ConfigOption {
	return func(c *Config) {
		c.EmbeddingMode = mode
	}
}

// WithFanOutConcurrency sets the per-batch concurrency in fan-out mode.
func WithFanOutConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.FanOutConcurrency = n
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:     defaultHost,
		ChatHost:          defaultHost,
		APIKey:            "none",
		EmbeddingModel:    "nomic-embed-text",
		EmbeddingMode:     EmbeddingModeBatch,
		FanOutConcurrency: 5,
		ChatModel:         "qwen2.5vl:7b",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434/v1"),
//       WithEmbeddingModel("text-embedding-3-small"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.ChatHost = withV1(c.ChatHost)
	if c.EmbeddingMode == "" {
		c.EmbeddingMode = EmbeddingModeBatch
	}
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.EmbeddingMode != EmbeddingModeBatch && c.EmbeddingMode != EmbeddingModeFanOut {
		return errors.New("ai config: EmbeddingMode must be batch or fanout")
	}
	if c.EmbeddingDimensions < 0 {
		return errors.New("ai config: EmbeddingDimensions must not be negative")
	}
	if c.EmbeddingMode == EmbeddingModeFanOut && c.FanOutConcurrency < 1 {
		return errors.New("ai config: FanOutConcurrency must be at least 1")
	}
	return nil
}
