package batch

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, "Progress", 100, 10)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Update(25, 0)
	tracker.Update(50, 1)
	tracker.Update(100, 1)

	time.Sleep(time.Millisecond)
	assert.Greater(t, tracker.Elapsed(), time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "100/100", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
	assert.Contains(t, output, "1 failed")
}

func TestTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, "Progress", 1000, 100)

	tracker.Start()
	tracker.Update(50, 0)
	assert.Empty(t, buf.String(), "below the interval nothing is printed")

	tracker.Update(150, 0)
	assert.Contains(t, buf.String(), "150/1000")
}

func TestTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, "Progress", 100, 10)

	tracker.Start()
	tracker.Update(75, 0)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should set to total")
	assert.Contains(t, output, "\n", "finish should print newline")
	assert.Zero(t, tracker.Elapsed(), "finished tracker is stopped")
}

func TestTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, "Progress", 100, 10)

	tracker.Update(50, 0)
	tracker.Finish()

	assert.Empty(t, buf.String(), "should not output when not started")
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}
