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

import "errors"

// Domain validation errors
var (
	// ErrInvalidPage indicates a PageMarkdown failed validation.
	ErrInvalidPage = errors.New("invalid page")

	// ErrInvalidPageNumber indicates a page number below 1.
	ErrInvalidPageNumber = errors.New("page number must be >= 1")

	// ErrInvalidTable indicates a TableRecord failed validation.
	ErrInvalidTable = errors.New("invalid table record")

	// ErrNotRectangular indicates a table row whose keys do not match the columns.
	ErrNotRectangular = errors.New("table is not rectangular")

	// ErrInvalidChunk indicates a PageChunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidStatus indicates an unknown Status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition indicates a forbidden status transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingID indicates a required identifier is empty.
	ErrMissingID = errors.New("missing id")
)
