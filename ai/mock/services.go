package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/core"
)

// MockImageDescriber is a test double for ai.ImageDescriber.
type MockImageDescriber struct {
	// DescribeImageFunc is called by DescribeImage if set.
	// If nil, returns a plain image summary naming the hint.
	DescribeImageFunc func(ctx context.Context, imageURL, hint string) (*core.ImageAnalysis, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.ImageDescriber = (*MockImageDescriber)(nil)

// NewMockImageDescriber creates a mock describer with default behavior.
func NewMockImageDescriber() *MockImageDescriber {
	return &MockImageDescriber{}
}

// DescribeImage returns the injected analysis or a default one.
func (m *MockImageDescriber) DescribeImage(ctx context.Context, imageURL, hint string) (*core.ImageAnalysis, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.DescribeImageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, imageURL, hint)
	}
	return &core.ImageAnalysis{
		ImageSummary: "mock image: " + hint,
		ImageType:    core.ImageTypeImage,
	}, nil
}

// CallCount returns the number of times DescribeImage was called.
func (m *MockImageDescriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockImageDescriber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.DescribeImageFunc = nil
}

// MockQAExtractor is a test double for ai.QAExtractor.
type MockQAExtractor struct {
	// ExtractQAsFunc is called by ExtractQAs if set.
	// If nil, every line ending in '?' becomes a question answered by the next line.
	ExtractQAsFunc func(ctx context.Context, content string) ([]ai.ExtractedQA, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.QAExtractor = (*MockQAExtractor)(nil)

// NewMockQAExtractor creates a mock Q&A extractor with default behavior.
func NewMockQAExtractor() *MockQAExtractor {
	return &MockQAExtractor{}
}

// ExtractQAs returns injected pairs or pairs read off question lines.
func (m *MockQAExtractor) ExtractQAs(ctx context.Context, content string) ([]ai.ExtractedQA, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractQAsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, content)
	}

	lines := strings.Split(content, "\n")
	pairs := []ai.ExtractedQA{}
	for i := 0; i+1 < len(lines); i++ {
		q := strings.TrimSpace(lines[i])
		a := strings.TrimSpace(lines[i+1])
		if strings.HasSuffix(q, "?") && a != "" {
			pairs = append(pairs, ai.ExtractedQA{Question: q, Answer: a, SourceType: "text"})
			i++
		}
	}
	return pairs, nil
}

// CallCount returns the number of times ExtractQAs was called.
func (m *MockQAExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockQAExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractQAsFunc = nil
}
