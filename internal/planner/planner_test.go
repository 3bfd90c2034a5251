package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanIncludesCommonReadsVerbatim(t *testing.T) {
	got := Plan(nil)
	require.GreaterOrEqual(t, len(got), len(commonReads))
	for i, want := range commonReads {
		assert.Equal(t, want, got[i], "common read %d mismatch", i)
	}
}

func TestPlanPagesOversizeRanges(t *testing.T) {
	got := Plan([]Topic{ZONES})
	for _, r := range got {
		assert.LessOrEqual(t, r.Size, 64, "plan emitted an unpaged range: %+v", r)
	}
}

func TestPlanPreservesDuplicateTopics(t *testing.T) {
	once := Plan([]Topic{USERS})
	twice := Plan([]Topic{USERS, USERS})
	assert.Equal(t, 2*len(once)-len(commonReads), len(twice))
}

func TestPlanEmptyTopicsStillCommon(t *testing.T) {
	got := Plan([]Topic{OUTPUTS, LOGS})
	assert.Len(t, got, len(commonReads), "OUTPUTS/LOGS have no field table; expected only common reads")
}
