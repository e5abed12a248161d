package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hotlabel/hotlabel/pkg/logger"
)

// Run executes the complete labeling load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting labeling load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("tasksPerSession", config.TasksPerSession),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	outcomes := runSessions(ctx, config)
	collect(outcomes, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.StatsMismatches > 0 {
		return fmt.Errorf("%d sessions reported stats that disagree with local counts", stats.StatsMismatches)
	}
	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout, config.PublisherID)
	resp, err := client.Get(config.BaseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// runSessions drives config.Sessions simulated labelers through a worker
// pool and returns their outcomes.
func runSessions(ctx context.Context, config *Config) []sessionOutcome {
	jobs := make(chan int, config.Workers*2)
	results := make(chan sessionOutcome, config.Sessions)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := newHTTPClient(config.Timeout, config.PublisherID)
			for range jobs {
				select {
				case <-ctx.Done():
					return
				default:
					results <- runSession(ctx, client, config)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range config.Sessions {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	close(results)

	outcomes := make([]sessionOutcome, 0, config.Sessions)
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// runSession simulates one labeler: init session, then fetch and submit
// tasks until the per-session budget is spent.
func runSession(ctx context.Context, client *HTTPClient, config *Config) sessionOutcome {
	var outcome sessionOutcome

	resp, err := client.Post(config.BaseURL+"/v1/users/sessions", sessionInitBody(config.PublisherID))
	if err != nil {
		outcome.failed = true
		return outcome
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != http.StatusCreated {
		outcome.failed = true
		return outcome
	}
	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil || session.SessionID == "" {
		outcome.failed = true
		return outcome
	}
	outcome.sessionID = session.SessionID

	for range config.TasksPerSession {
		task, status := fetchNextTask(client, config, session.SessionID)
		switch status {
		case http.StatusTooManyRequests:
			outcome.rateLimited++
			continue
		case http.StatusNoContent:
			return verifySessionStats(client, config, outcome)
		case http.StatusOK:
		default:
			continue
		}

		outcome.tasksFetched++
		if task.GoldenSet {
			outcome.goldenServed++
		}

		submitURL := fmt.Sprintf("%s/v1/tasks/%s/submit", config.BaseURL, task.TaskID)
		resp, err := client.Post(submitURL, map[string]any{
			"session_id":    session.SessionID,
			"response":      pickAnswer(task),
			"time_spent_ms": thinkTimeMS(),
		})
		if err != nil {
			continue
		}
		body, err := readResponseBody(resp)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			outcome.rateLimited++
			continue
		}

		var submitted submitResponse
		if err := json.Unmarshal(body, &submitted); err != nil || !submitted.Success {
			continue
		}
		outcome.submissionsOK++
		outcome.rewardSeconds += submitted.Reward.DurationSeconds
	}

	return verifySessionStats(client, config, outcome)
}

// fetchNextTask asks for the next task and reports the HTTP status.
func fetchNextTask(client *HTTPClient, config *Config, sessionID string) (taskResponse, int) {
	var task taskResponse
	resp, err := client.Get(config.BaseURL + "/v1/tasks/next?session_id=" + sessionID)
	if err != nil {
		return task, 0
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return task, resp.StatusCode
	}
	if resp.StatusCode == http.StatusOK {
		_ = json.Unmarshal(body, &task)
	}
	return task, resp.StatusCode
}

// collect aggregates per-session outcomes into the final stats.
func collect(outcomes []sessionOutcome, stats *Stats) {
	for _, o := range outcomes {
		if o.failed {
			stats.SessionsFailed++
			continue
		}
		stats.SessionsStarted++
		stats.TasksFetched += o.tasksFetched
		stats.GoldenTasksServed += o.goldenServed
		stats.SubmissionsOK += o.submissionsOK
		stats.RewardSecondsTotal += o.rewardSeconds
		stats.RateLimited += o.rateLimited
		if !o.statsMatch {
			stats.StatsMismatches++
		}
	}
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var tasksPerSecond float64
	if stats.Duration > 0 {
		tasksPerSecond = float64(stats.SubmissionsOK) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("tasksFetched", stats.TasksFetched),
		logger.Int("goldenTasksServed", stats.GoldenTasksServed),
		logger.Int("submissionsOK", stats.SubmissionsOK),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("statsMismatches", stats.StatsMismatches),
		logger.Int("rewardSecondsTotal", stats.RewardSecondsTotal),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("tasksPerSecond", tasksPerSecond))
}
