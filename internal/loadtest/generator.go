package loadtest

import (
	"math/rand/v2"
)

// Labeler behavior tuning. A small share of submissions simulate the
// pathological timings the validator penalizes.
const (
	fastResponseShare = 0.05
	slowResponseShare = 0.02
	minThinkTimeMS    = 1500
	maxThinkTimeMS    = 12000
)

// sessionInitBody builds the session init payload for one synthetic labeler.
func sessionInitBody(publisherID string) map[string]any {
	browsers := []string{"firefox", "chrome", "safari"}
	languages := []string{"en-US", "en-GB", "de-DE"}
	devices := []string{"desktop", "desktop", "mobile"}

	return map[string]any{
		"publisher_id": publisherID,
		"client_info": map[string]any{
			"browser":     browsers[rand.IntN(len(browsers))],
			"language":    languages[rand.IntN(len(languages))],
			"device_type": devices[rand.IntN(len(devices))],
		},
		"consent": map[string]any{
			"functional": true,
			"analytics":  rand.IntN(2) == 0,
		},
	}
}

// pickAnswer chooses a response for a task. Without the ground truth the
// simulated labeler just picks an option.
func pickAnswer(task taskResponse) string {
	if len(task.Options) == 0 {
		return "unknown"
	}
	return task.Options[rand.IntN(len(task.Options))]
}

// thinkTimeMS draws a response time, occasionally pathological to exercise
// the timing penalties.
func thinkTimeMS() int {
	roll := rand.Float64()
	switch {
	case roll < fastResponseShare:
		return rand.IntN(499)
	case roll < fastResponseShare+slowResponseShare:
		return 30001 + rand.IntN(20000)
	default:
		return minThinkTimeMS + rand.IntN(maxThinkTimeMS-minThinkTimeMS)
	}
}
