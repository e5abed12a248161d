package store

import "fmt"

// Key builders. Keeping them in one place makes the keyspace auditable and
// prevents drift between writers and readers.

// RateLimitKey identifies one caller's request window for one path class.
func RateLimitKey(callerID, path string) string {
	return fmt.Sprintf("rate_limit:%s:%s", callerID, path)
}

// SessionKey holds the session envelope.
func SessionKey(publisherID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", publisherID, sessionID)
}

// ProfileKey holds the labeler profile for one session.
func ProfileKey(publisherID, sessionID string) string {
	return fmt.Sprintf("user:profile:%s:%s", publisherID, sessionID)
}

// CompletedKey holds the per-session completion counter.
func CompletedKey(sessionID string) string {
	return fmt.Sprintf("user:tasks_completed:%s", sessionID)
}

// AssignmentKey holds a handed-out task's assignment record.
func AssignmentKey(taskID string) string {
	return fmt.Sprintf("task:%s", taskID)
}

// LeaseKey holds the short exclusive claim on a task instance.
func LeaseKey(taskID string) string {
	return fmt.Sprintf("task:assigned:%s", taskID)
}

// ValidationKey holds one immutable validation result.
func ValidationKey(validationID string) string {
	return fmt.Sprintf("validation:%s", validationID)
}

// SubmissionKey holds one submission outcome. Keyed by task and session so a
// client retry lands on the same record.
func SubmissionKey(taskID, sessionID string) string {
	return fmt.Sprintf("submission:%s:%s", taskID, sessionID)
}

// BatchKey holds an expiring batch of tasks.
func BatchKey(batchID string) string {
	return fmt.Sprintf("batch:%s", batchID)
}
