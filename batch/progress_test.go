package batch

import (
	"errors"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressStore_Lifecycle(t *testing.T) {
	s := NewProgressStore()
	s.Track("a", core.StatusQueued)

	require.NoError(t, s.Transition("a", core.StatusProcessing, nil))
	require.NoError(t, s.SetProgress("a", 40))
	require.NoError(t, s.SetSubPhase("a", 75, 8))

	rec, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, core.StatusProcessing, rec.Status)
	assert.Equal(t, 40.0, rec.Progress)
	assert.Equal(t, 75.0, rec.SubPhaseProgress)
	assert.Equal(t, 8, rec.SubPhaseCount)
	assert.False(t, rec.UpdatedAt.IsZero())

	require.NoError(t, s.Transition("a", core.StatusParsed, nil))
	rec, _ = s.Get("a")
	assert.Equal(t, 100.0, rec.Progress)

	// terminal records ignore further progress
	require.NoError(t, s.SetProgress("a", 10))
	rec, _ = s.Get("a")
	assert.Equal(t, 100.0, rec.Progress)

	err := s.Transition("a", core.StatusProcessing, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestProgressStore_FailureRecordsError(t *testing.T) {
	s := NewProgressStore()
	s.Track("a", core.StatusQueued)

	require.NoError(t, s.Transition("a", core.StatusFailed, errors.New("timeout")))
	rec, _ := s.Get("a")
	assert.Equal(t, core.StatusFailed, rec.Status)
	assert.Equal(t, "timeout", rec.Error)
}

func TestProgressStore_UnknownItem(t *testing.T) {
	s := NewProgressStore()
	assert.ErrorIs(t, s.SetProgress("missing", 1), ErrUnknownItem)
	assert.ErrorIs(t, s.Transition("missing", core.StatusProcessing, nil), ErrUnknownItem)
	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestProgressStore_FlushTracksChanges(t *testing.T) {
	s := NewProgressStore()
	s.Track("a", core.StatusQueued)
	s.Track("b", core.StatusQueued)

	snap, dirty := s.Flush()
	assert.True(t, dirty)
	assert.Len(t, snap, 2)

	_, dirty = s.Flush()
	assert.False(t, dirty)

	require.NoError(t, s.Transition("b", core.StatusProcessing, nil))
	snap, dirty = s.Flush()
	assert.True(t, dirty)
	assert.Equal(t, core.StatusProcessing, snap["b"].Status)

	// snapshots are copies
	snap["a"] = core.ProgressRecord{Status: core.StatusFailed}
	rec, _ := s.Get("a")
	assert.Equal(t, core.StatusQueued, rec.Status)

	assert.Equal(t, map[core.Status]int{core.StatusQueued: 1, core.StatusProcessing: 1}, s.Counts())
}

func TestProgressStore_ClampsPercent(t *testing.T) {
	s := NewProgressStore()
	s.Track("a", core.StatusProcessing)
	require.NoError(t, s.SetProgress("a", 140))
	rec, _ := s.Get("a")
	assert.Equal(t, 100.0, rec.Progress)
	require.NoError(t, s.SetProgress("a", -3))
	rec, _ = s.Get("a")
	assert.Equal(t, 0.0, rec.Progress)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 3, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{5, 3, 100},
		{0, 0, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.done, tt.total), "%d/%d", tt.done, tt.total)
	}
}

func TestItemProgress_NilSafe(t *testing.T) {
	var p *ItemProgress
	assert.NotPanics(t, func() {
		p.Report(50)
		p.ReportSubPhase(10, 1)
	})
}
