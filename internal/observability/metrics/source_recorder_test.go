package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRecorder_SnapshotPercentages(t *testing.T) {
	recorder := NewSourceRecorder()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	recorder.Record(SourceCanonical, now.Add(-time.Hour))
	recorder.Record(SourceCanonical, now.Add(-30*time.Minute))
	recorder.Record(SourceCanonical, now.Add(-10*time.Minute))
	recorder.Record(SourceLiveAPI, now.Add(-5*time.Minute))

	breakdown := recorder.Snapshot(now)
	require.Len(t, breakdown, 2)

	assert.Equal(t, SourceCanonical, breakdown[0].Source)
	assert.Equal(t, 3, breakdown[0].Count)
	assert.InDelta(t, 75.0, breakdown[0].Percentage, 0.001)
	assert.Equal(t, SourceLiveAPI, breakdown[1].Source)
	assert.InDelta(t, 25.0, breakdown[1].Percentage, 0.001)
}

func TestSourceRecorder_WindowPrunesOldEvents(t *testing.T) {
	recorder := NewSourceRecorderWithWindow(time.Hour)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	recorder.Record(SourceAggregator, now.Add(-2*time.Hour))
	recorder.Record(SourceCanonical, now.Add(-10*time.Minute))

	breakdown := recorder.Snapshot(now)
	require.Len(t, breakdown, 1)
	assert.Equal(t, SourceCanonical, breakdown[0].Source)
	assert.InDelta(t, 100.0, breakdown[0].Percentage, 0.001)
}

func TestSourceRecorder_TiesSortedByName(t *testing.T) {
	recorder := NewSourceRecorder()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	recorder.Record(SourceLiveAPI, now)
	recorder.Record(SourceCanonical, now)

	breakdown := recorder.Snapshot(now)
	require.Len(t, breakdown, 2)
	assert.Equal(t, SourceCanonical, breakdown[0].Source)
	assert.Equal(t, SourceLiveAPI, breakdown[1].Source)
}
