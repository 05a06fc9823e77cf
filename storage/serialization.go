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


package storage

import (
	"bytes"
	"fmt"

	"github.com/poiesic/docsift/core"
	"github.com/vmihailenco/msgpack/v5"
)

// structTag makes stored field names match the JSON names of core types.
const structTag = "json"

// Marshal serializes a value to msgpack, keyed by JSON field names.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes msgpack data into out. Numbers held in interface
// values decode as int64, uint64 or float64.
func Unmarshal(data []byte, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(structTag)
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}

// ToFields converts a typed record into its stored form.
func ToFields(v any) (Fields, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields Fields
	if err := Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// FromFields converts stored fields back into a typed record.
func FromFields(fields Fields, out any) error {
	data, err := Marshal(fields)
	if err != nil {
		return err
	}
	return Unmarshal(data, out)
}

// MarshalProgress serializes a progress snapshot.
func MarshalProgress(records map[string]core.ProgressRecord) ([]byte, error) {
	return Marshal(records)
}

// UnmarshalProgress deserializes a progress snapshot.
func UnmarshalProgress(data []byte) (map[string]core.ProgressRecord, error) {
	var records map[string]core.ProgressRecord
	if err := Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
