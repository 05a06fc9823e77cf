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


// Package enrichment turns extracted images into searchable text.
//
// Each image is shrunk if its payload is too large for a vision model,
// described with the text around its placeholder as a hint, and the
// description is written back into the page markdown in place of the
// placeholder. Charts and tables read off an image are rendered as
// markdown lists so they embed alongside the rest of the page.
//
// A failed image never fails its page: the placeholder is left as is.
package enrichment
