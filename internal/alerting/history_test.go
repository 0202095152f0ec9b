package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHistory_RecentNewestFirst(t *testing.T) {
	t.Parallel()
	h := NewRunHistory(10)
	for i := range 3 {
		h.Record(RunRecord{
			StartedAt: fixtureNow.Add(time.Duration(i) * time.Minute),
			Trigger:   TriggerTimer,
			Result:    CycleResult{RulesChecked: i},
		})
	}

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].Result.RulesChecked)
	assert.Equal(t, 1, recent[1].Result.RulesChecked)

	assert.Len(t, h.Recent(0), 3)
	assert.Len(t, h.Recent(100), 3)
}

func TestRunHistory_EvictsOldest(t *testing.T) {
	t.Parallel()
	h := NewRunHistory(3)
	for i := range 5 {
		h.Record(RunRecord{Result: CycleResult{RulesChecked: i}})
	}

	assert.Equal(t, 3, h.Len())
	recent := h.Recent(0)
	assert.Equal(t, 4, recent[0].Result.RulesChecked)
	assert.Equal(t, 2, recent[2].Result.RulesChecked)
}

func TestRunHistory_DefaultSize(t *testing.T) {
	t.Parallel()
	h := NewRunHistory(0)
	for range maxRunRecords + 5 {
		h.Record(RunRecord{})
	}
	assert.Equal(t, maxRunRecords, h.Len())
}
