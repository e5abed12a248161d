// Package reward converts a quality score into a graduated content-access
// reward.
package reward

import (
	"fmt"

	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/pkg/metrics"
)

// tier maps a minimum quality score to an access duration. Evaluated
// top-down, first match wins.
type tier struct {
	minScore        float64
	durationSeconds int
}

var tiers = []tier{
	{0.9, 7200},
	{0.8, 5400},
	{0.7, 3600},
}

const floorDurationSeconds = 1800

// For returns the content-access reward earned by a quality score.
func For(qualityScore float64) model.Reward {
	duration := floorDurationSeconds
	for _, t := range tiers {
		if qualityScore >= t.minScore {
			duration = t.durationSeconds
			break
		}
	}
	metrics.RecordRewardGranted(fmt.Sprintf("%ds", duration))
	return model.Reward{
		Type:            model.RewardContentAccess,
		DurationSeconds: duration,
	}
}

// None is the absent reward returned when the originating assignment could
// not be found. Failure short-circuits reward computation entirely.
func None() model.Reward {
	return model.Reward{Type: model.RewardNone}
}
