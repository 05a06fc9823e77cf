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


package core

import "fmt"

// ValidatePage validates a PageMarkdown produced by OCR.
//
// Validation rules:
//   - PageNumber must be >= 1
//
// Empty page text is valid; blank pages are common in scanned documents.
func ValidatePage(page *PageMarkdown) error {
	if page == nil {
		return fmt.Errorf("%w: page is nil", ErrInvalidPage)
	}
	if page.PageNumber < 1 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidPage, ErrInvalidPageNumber, page.PageNumber)
	}
	return nil
}

// ValidateTable validates that a TableRecord forms a rectangular frame.
//
// Validation rules:
//   - At least one column
//   - Column keys are unique
//   - Every row has exactly the column keys
func ValidateTable(table *TableRecord) error {
	if table == nil {
		return fmt.Errorf("%w: table is nil", ErrInvalidTable)
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidTable)
	}

	keys := make(map[string]struct{}, len(table.Columns))
	for _, col := range table.Columns {
		if _, dup := keys[col.Key]; dup {
			return fmt.Errorf("%w: duplicate column key %q", ErrInvalidTable, col.Key)
		}
		keys[col.Key] = struct{}{}
	}

	for i, row := range table.Rows {
		if len(row) != len(keys) {
			return fmt.Errorf("%w: %w: row %d has %d cells, want %d",
				ErrInvalidTable, ErrNotRectangular, i, len(row), len(keys))
		}
		for k := range row {
			if _, ok := keys[k]; !ok {
				return fmt.Errorf("%w: %w: row %d has unknown key %q", ErrInvalidTable, ErrNotRectangular, i, k)
			}
		}
	}
	return nil
}

// ValidateChunk validates a PageChunk before embedding.
//
// Validation rules:
//   - Content must not be blank
//   - Page numbers must be >= 1
func ValidateChunk(chunk *PageChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	for _, p := range chunk.PageNumbers {
		if p < 1 {
			return fmt.Errorf("%w: %w: got %d", ErrInvalidChunk, ErrInvalidPageNumber, p)
		}
	}
	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(s Status) error {
	switch s {
	case StatusCreated, StatusQueued, StatusProcessing, StatusParsed, StatusFailed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ValidateTransition checks a progress state change.
//
// Allowed transitions:
//   - created/queued -> processing, failed
//   - processing -> processing, parsed, failed
//
// Terminal states never change.
func ValidateTransition(from, to Status) error {
	if err := ValidateStatus(to); err != nil {
		return err
	}
	switch from {
	case StatusCreated, StatusQueued:
		if to == StatusProcessing || to == StatusFailed || to == from {
			return nil
		}
	case StatusProcessing:
		if to == StatusProcessing || to == StatusParsed || to == StatusFailed {
			return nil
		}
	case StatusParsed, StatusFailed:
		// terminal
	default:
		return ValidateStatus(from)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
