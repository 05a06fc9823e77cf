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

import "unicode"

// repairJSON fixes the two malformations model replies carry most often:
// object keys that lost their opening quote, as in {question": "..."}, and
// trailing commas before a closing bracket. Text inside string values is
// never touched.
func repairJSON(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes)+16)

	inString, escaped := false, false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			out = append(out, r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case ',':
			if closesNext(runes, i+1) {
				continue
			}
		}
		out = append(out, r)
		if r != '{' && r != ',' {
			continue
		}

		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			out = append(out, runes[j])
			j++
		}
		if end, ok := bareKey(runes, j); ok {
			out = append(out, '"')
			out = append(out, runes[j:end]...)
			out = append(out, '"')
			j = end + 1
		}
		i = j - 1
	}
	return string(out)
}

// bareKey reports whether an unquoted key starts at i and is closed by a
// stray quote directly before the colon. end is the index of that quote.
func bareKey(runes []rune, i int) (end int, ok bool) {
	j := i
	for j < len(runes) && isKeyRune(runes[j], j == i) {
		j++
	}
	if j == i || j+1 >= len(runes) || runes[j] != '"' || runes[j+1] != ':' {
		return 0, false
	}
	return j, true
}

// closesNext reports whether the next non-space rune from i closes an
// object or array.
func closesNext(runes []rune, i int) bool {
	for ; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			continue
		}
		return runes[i] == '}' || runes[i] == ']'
	}
	return false
}

func isKeyRune(r rune, first bool) bool {
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' {
		return true
	}
	return !first && r >= '0' && r <= '9'
}
