// Package classify turns a raw per-host task outcome plus configuration
// flags into the final status recorded in the metrics.
package classify

import (
	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
)

// Options are the configuration flags influencing classification.
type Options struct {
	// FailOnChange reclassifies ok-but-changed results as failed.
	FailOnChange bool
	// FailOnIgnore keeps failed results failed even when the task was
	// marked to ignore errors.
	FailOnIgnore bool
}

// setupActions is the excluded "setup" category. Results for these actions
// are dropped entirely when setup tasks are not included in the report.
var setupActions = map[string]struct{}{
	"setup":        {},
	"gather_facts": {},
}

// IsSetupAction reports whether action belongs to the setup category.
func IsSetupAction(action string) bool {
	_, ok := setupActions[action]
	return ok
}

// Final applies the classification decision table, first matching rule wins:
//
//  1. failed + ignore_errors and FailOnIgnore unset  -> ok
//  2. failed otherwise                               -> failed
//  3. ok + changed and FailOnChange set              -> failed
//  4. anything else                                  -> raw status unchanged
//
// The additional "changed" increment is a separate concern handled by the
// caller against the original changed flag, unaffected by reclassification.
func Final(status events.Status, changed, ignoreErrors bool, opts Options) events.Status {
	if status == events.StatusFailed {
		if ignoreErrors && !opts.FailOnIgnore {
			return events.StatusOK
		}
		return events.StatusFailed
	}
	if status == events.StatusOK && changed && opts.FailOnChange {
		return events.StatusFailed
	}
	return status
}
