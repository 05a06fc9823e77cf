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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/ocr"
)

// document is the state a file accumulates while it moves through the
// workflow stages.
type document struct {
	file     core.File
	progress *batch.ItemProgress

	pages  []ocr.Page
	texts  []core.TextContent
	tables []core.TableRecord
	images []core.ImageRecord
	chunks []core.PageChunk

	vectorIDs []string
}

// processor is one step of the file workflow.
// Implementations handle a single concern like OCR or indexing.
type processor interface {
	// name identifies the step in logs and errors.
	name() string

	// process advances doc. An error fails the whole file.
	process(ctx context.Context, doc *document) error
}

type processorFunc struct {
	label string
	fn    func(ctx context.Context, doc *document) error
}

var _ processor = processorFunc{}

func (p processorFunc) name() string { return p.label }

func (p processorFunc) process(ctx context.Context, doc *document) error {
	return p.fn(ctx, doc)
}

// runProcessors applies steps in order and stops at the first failure.
func runProcessors(ctx context.Context, logger *slog.Logger, doc *document, steps []processor) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := step.process(ctx, doc); err != nil {
			return fmt.Errorf("%s: %w", step.name(), err)
		}
		logger.Debug("step finished", "file", doc.file.ID, "step", step.name(), "elapsed", time.Since(start))
	}
	return nil
}
