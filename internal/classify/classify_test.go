package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gxo-labs/playmetrics/internal/classify"
	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
)

func TestFinal_DecisionTable(t *testing.T) {
	tests := []struct {
		name         string
		status       events.Status
		changed      bool
		ignoreErrors bool
		opts         classify.Options
		want         events.Status
	}{
		{
			name:         "failed with ignored errors becomes ok",
			status:       events.StatusFailed,
			ignoreErrors: true,
			want:         events.StatusOK,
		},
		{
			name:         "failed with ignored errors stays failed under fail_on_ignore",
			status:       events.StatusFailed,
			ignoreErrors: true,
			opts:         classify.Options{FailOnIgnore: true},
			want:         events.StatusFailed,
		},
		{
			name:   "failed without ignore stays failed",
			status: events.StatusFailed,
			want:   events.StatusFailed,
		},
		{
			name:         "failed and changed with ignored errors still becomes ok",
			status:       events.StatusFailed,
			changed:      true,
			ignoreErrors: true,
			want:         events.StatusOK,
		},
		{
			name:    "ok and changed becomes failed under fail_on_change",
			status:  events.StatusOK,
			changed: true,
			opts:    classify.Options{FailOnChange: true},
			want:    events.StatusFailed,
		},
		{
			name:    "ok and changed stays ok without fail_on_change",
			status:  events.StatusOK,
			changed: true,
			want:    events.StatusOK,
		},
		{
			name:   "ok unchanged stays ok even under fail_on_change",
			status: events.StatusOK,
			opts:   classify.Options{FailOnChange: true},
			want:   events.StatusOK,
		},
		{
			name:   "skipped passes through",
			status: events.StatusSkipped,
			want:   events.StatusSkipped,
		},
		{
			name:    "skipped and changed passes through under fail_on_change",
			status:  events.StatusSkipped,
			changed: true,
			opts:    classify.Options{FailOnChange: true},
			want:    events.StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.Final(tt.status, tt.changed, tt.ignoreErrors, tt.opts)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSetupAction(t *testing.T) {
	assert.True(t, classify.IsSetupAction("setup"))
	assert.True(t, classify.IsSetupAction("gather_facts"))
	assert.False(t, classify.IsSetupAction("debug"))
	assert.False(t, classify.IsSetupAction(""))
	assert.False(t, classify.IsSetupAction("Setup"))
}
