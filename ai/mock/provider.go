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


package mock

import (
	"sync/atomic"

	"github.com/poiesic/docsift/ai"
)

var _ ai.AIProvider = (*MockProvider)(nil)

// MockProvider bundles the three mock services behind ai.AIProvider and
// counts Close calls so owners can be checked for closing what they were
// handed.
type MockProvider struct {
	embedder  *MockEmbedder
	describer *MockImageDescriber
	extractor *MockQAExtractor
	closes    atomic.Int32
}

// NewMockProvider returns a provider whose services use their default
// deterministic behavior.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockImageDescriber(), NewMockQAExtractor())
}

// NewMockProviderWithServices wires caller-configured mocks. A nil service
// falls back to its default.
func NewMockProviderWithServices(embedder *MockEmbedder, describer *MockImageDescriber, extractor *MockQAExtractor) ai.AIProvider {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	if describer == nil {
		describer = NewMockImageDescriber()
	}
	if extractor == nil {
		extractor = NewMockQAExtractor()
	}
	return &MockProvider{embedder: embedder, describer: describer, extractor: extractor}
}

func (p *MockProvider) Embedder() ai.Embedder             { return p.embedder }
func (p *MockProvider) ImageDescriber() ai.ImageDescriber { return p.describer }
func (p *MockProvider) QAExtractor() ai.QAExtractor       { return p.extractor }

func (p *MockProvider) Close() error {
	p.closes.Add(1)
	return nil
}

// CloseCount reports how many times Close was called.
func (p *MockProvider) CloseCount() int {
	return int(p.closes.Load())
}

// Concrete accessors for assertions.

func (p *MockProvider) GetMockEmbedder() *MockEmbedder        { return p.embedder }
func (p *MockProvider) GetMockDescriber() *MockImageDescriber { return p.describer }
func (p *MockProvider) GetMockExtractor() *MockQAExtractor    { return p.extractor }
