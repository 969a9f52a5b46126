package health

import (
	"testing"

	"github.com/cuemby/drover/pkg/types"
	"github.com/stretchr/testify/assert"
)

// TestParseFilter tests filter name parsing
func TestParseFilter(t *testing.T) {
	tests := []struct {
		input    string
		expected EventsFilter
		ok       bool
	}{
		{input: "", expected: DefaultFilter, ok: true},
		{input: "none", expected: FilterNone, ok: true},
		{input: "ok", expected: FilterOk, ok: true},
		{input: "warning,error", expected: FilterWarning | FilterError, ok: true},
		{input: "all", expected: FilterAll, ok: true},
		{input: "ok, warning", expected: FilterOk | FilterWarning, ok: true},
		{input: "bogus", ok: false},
		{input: "warning,bogus", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, ok := ParseFilter(tt.input)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.expected, f)
			}
		})
	}
}

// TestFilterQuery tests the wire form
func TestFilterQuery(t *testing.T) {
	assert.Equal(t, "0", FilterNone.Query())
	assert.Equal(t, "6", (FilterWarning | FilterError).Query())
	assert.Equal(t, "7", FilterAll.Query())
}

// TestFilterMatches tests per-state matching
func TestFilterMatches(t *testing.T) {
	f := FilterWarning | FilterError

	assert.False(t, f.Matches(types.HealthStateOk))
	assert.True(t, f.Matches(types.HealthStateWarning))
	assert.True(t, f.Matches(types.HealthStateError))
	assert.False(t, f.Matches(types.HealthStateInvalid))
}

// TestSummarize tests event counting
func TestSummarize(t *testing.T) {
	h := types.Health{
		NodeID:         "N1",
		AggregateState: types.HealthStateWarning,
		Events: []types.HealthEvent{
			{State: types.HealthStateOk},
			{State: types.HealthStateWarning},
			{State: types.HealthStateWarning},
			{State: types.HealthStateError},
			{State: types.HealthStateUnknown},
		},
	}

	r := Summarize(h)
	assert.Equal(t, types.HealthStateWarning, r.AggregateState)
	assert.Equal(t, 1, r.OkCount)
	assert.Equal(t, 2, r.WarningCount)
	assert.Equal(t, 1, r.ErrorCount)
	assert.Equal(t, 1, r.OtherCount)
}

// TestWorst tests worst-of aggregation
func TestWorst(t *testing.T) {
	assert.Equal(t, types.HealthStateError,
		Worst(types.HealthStateOk, types.HealthStateError, types.HealthStateWarning))
	assert.Equal(t, types.HealthStateOk, Worst(types.HealthStateOk))
	assert.Equal(t, types.HealthStateInvalid, Worst())

	// unknown outranks error
	assert.Equal(t, types.HealthStateUnknown,
		Worst(types.HealthStateError, types.HealthStateUnknown))
}
