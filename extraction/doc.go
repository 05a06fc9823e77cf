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


// Package extraction turns raw per-page OCR markdown into a structural
// representation: cleaned text, normalized tables and image records.
//
// Tables are detected with a single multiline pass over the page. Each one
// is kept in the text but preceded by an anchor of the form
//
//	<!--TABLE_REFERENCE: table-3-->
//
// so that chunks cut from the text can be traced back to the structured
// table record. Table numbering is continuous across a document; use an
// Extractor to carry the counter between page batches.
//
// Malformed tables are left as plain text. Extraction never fails a page.
package extraction
