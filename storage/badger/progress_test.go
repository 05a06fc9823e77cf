package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRepository(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewProgressRepository(backend)
	ctx := context.Background()

	records, err := repo.LoadProgress(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, records, "unknown runs load as nil")

	now := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveProgress(ctx, "run-1", map[string]core.ProgressRecord{
		"f1": {Status: core.StatusParsed, Progress: 100, UpdatedAt: now},
		"f2": {Status: core.StatusFailed, Error: "ocr timeout", UpdatedAt: now},
	}))
	require.NoError(t, repo.SaveProgress(ctx, "run-1", map[string]core.ProgressRecord{
		"f1": {Status: core.StatusParsed, Progress: 100, UpdatedAt: now},
		"f2": {Status: core.StatusFailed, Error: "ocr timeout", UpdatedAt: now},
		"f3": {Status: core.StatusProcessing, Progress: 33.33, SubPhaseCount: 3, UpdatedAt: now},
	}))

	records, err = repo.LoadProgress(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ocr timeout", records["f2"].Error)
	assert.Equal(t, 33.33, records["f3"].Progress)
	assert.Equal(t, 3, records["f3"].SubPhaseCount)
	assert.True(t, now.Equal(records["f1"].UpdatedAt))

	err = repo.SaveProgress(ctx, "", nil)
	assert.ErrorIs(t, err, core.ErrMissingID)
}
