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


package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
)

// ProgressRepository implements storage.ProgressRepository for BadgerDB.
type ProgressRepository struct {
	backend *Backend
}

var _ storage.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(backend *Backend) *ProgressRepository {
	return &ProgressRepository{
		backend: backend,
	}
}

// SaveProgress persists the progress snapshot of a run.
func (r *ProgressRepository) SaveProgress(ctx context.Context, runID string, records map[string]core.ProgressRecord) error {
	if runID == "" {
		return core.ErrMissingID
	}
	value, err := storage.MarshalProgress(records)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeProgressKey(runID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadProgress retrieves the progress snapshot of a run.
// Returns nil, nil if no snapshot exists.
func (r *ProgressRepository) LoadProgress(ctx context.Context, runID string) (map[string]core.ProgressRecord, error) {
	var records map[string]core.ProgressRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeProgressKey(runID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			records, unmarshalErr = storage.UnmarshalProgress(val)
			return unmarshalErr
		})
	}, false)

	return records, err
}
