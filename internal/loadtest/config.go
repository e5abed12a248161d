package loadtest

import "time"

// Config holds configuration for the labeling load test.
type Config struct {
	BaseURL         string        // Base URL of the service
	PublisherID     string        // Publisher identity for all sessions
	Sessions        int           // Number of labeling sessions to simulate
	TasksPerSession int           // Submissions attempted per session
	Workers         int           // Number of concurrent workers
	Timeout         time.Duration // HTTP request timeout
	LogFile         string        // Log file for test output
	Verbose         bool          // Enable verbose logging
}

// Stats holds test statistics.
type Stats struct {
	SessionsStarted    int
	SessionsFailed     int
	TasksFetched       int
	TasksExhausted     int
	SubmissionsOK      int
	SubmissionsFailed  int
	GoldenTasksServed  int
	RateLimited        int
	StatsMismatches    int
	RewardSecondsTotal int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// sessionOutcome is one worker's account of a simulated session.
type sessionOutcome struct {
	sessionID     string
	tasksFetched  int
	goldenServed  int
	submissionsOK int
	rewardSeconds int
	rateLimited   int
	failed        bool
	statsMatch    bool
}
