package loadtest

import (
	"encoding/json"
	"net/http"
)

// verifySessionStats cross-checks the server's view of a session against
// the local submission count. The completion counter must equal the number
// of accepted first-time submissions.
func verifySessionStats(client *HTTPClient, config *Config, outcome sessionOutcome) sessionOutcome {
	resp, err := client.Get(config.BaseURL + "/v1/users/stats?session_id=" + outcome.sessionID)
	if err != nil {
		return outcome
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != http.StatusOK {
		return outcome
	}

	var stats userStatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		return outcome
	}
	outcome.statsMatch = stats.TasksCompleted == outcome.submissionsOK
	return outcome
}
