// Package model contains domain entities passed between layers.
package model

import "time"

// ExpertiseLevel classifies how much a labeler can be trusted with
// complex tasks.
type ExpertiseLevel string

// Known expertise levels.
const (
	ExpertiseBeginner     ExpertiseLevel = "beginner"
	ExpertiseIntermediate ExpertiseLevel = "intermediate"
	ExpertiseExpert       ExpertiseLevel = "expert"
)

// maxComplexityByExpertise is the fixed derivation from expertise level to
// the per-profile complexity ceiling.
var maxComplexityByExpertise = map[ExpertiseLevel]int{
	ExpertiseBeginner:     2,
	ExpertiseIntermediate: 3,
	ExpertiseExpert:       5,
}

// MaxComplexityFor returns the complexity ceiling for a given expertise
// level. Unknown levels fall back to the beginner ceiling.
func MaxComplexityFor(level ExpertiseLevel) int {
	if c, ok := maxComplexityByExpertise[level]; ok {
		return c
	}
	return maxComplexityByExpertise[ExpertiseBeginner]
}

// Profile is the short-lived per-session labeler profile used to
// personalize task selection. It expires with the session.
type Profile struct {
	SessionID          string         `json:"session_id"`
	PublisherID        string         `json:"publisher_id"`
	Language           string         `json:"language"`
	ExpertiseLevel     ExpertiseLevel `json:"expertise_level"`
	TaskPreferences    []string       `json:"task_preferences"`
	ExpertiseAreas     []string       `json:"expertise_areas,omitempty"`
	PreferredLanguages []string       `json:"preferred_languages,omitempty"`
	MaxComplexity      int            `json:"max_complexity"`
}

// TaskContent carries the presentable payload of a task; which fields are
// set depends on the task type.
type TaskContent struct {
	ImageURL string `json:"image_url,omitempty"`
	Question string `json:"question,omitempty"`
	Text     string `json:"text,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	Context  string `json:"context,omitempty"`
}

// Task is a catalog task as the task source hands it out. KnownAnswer is
// only populated for calibration candidates and must never leave the core.
type Task struct {
	ID                  string
	Type                string
	Content             TaskContent
	Options             []string
	Language            string
	Category            string
	ComplexityLevel     int
	TimeEstimateSeconds int
	KnownAnswer         string
}

// TaskView is the outward shape of an assigned task. It deliberately has no
// expected-answer field.
type TaskView struct {
	TaskID              string      `json:"task_id"`
	TaskType            string      `json:"task_type"`
	Content             TaskContent `json:"content"`
	Options             []string    `json:"options,omitempty"`
	TimeEstimateSeconds int         `json:"time_estimate_seconds"`
	ComplexityLevel     int         `json:"complexity_level"`
	GoldenSet           bool        `json:"golden_set"`
	ExpiresAt           time.Time   `json:"expires_at"`
}

// Assignment records a task handed to a session, read back exactly once at
// submission time. ExpectedAnswer is set iff GoldenSet.
type Assignment struct {
	TaskID          string    `json:"task_id"`
	TaskType        string    `json:"task_type"`
	GoldenSet       bool      `json:"golden_set"`
	ExpectedAnswer  string    `json:"expected_answer,omitempty"`
	PublisherID     string    `json:"publisher_id"`
	SessionID       string    `json:"session_id"`
	ComplexityLevel int       `json:"complexity_level"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// TaskSummary is the per-task shape inside a batch.
type TaskSummary struct {
	TaskID          string      `json:"task_id"`
	TaskType        string      `json:"task_type"`
	Content         TaskContent `json:"content"`
	Options         []string    `json:"options,omitempty"`
	ComplexityLevel int         `json:"complexity_level"`
}

// Batch is an expiring set of tasks handed out in one call. Batches are not
// leased per task and never contain calibration tasks.
type Batch struct {
	BatchID   string        `json:"batch_id"`
	Tasks     []TaskSummary `json:"tasks"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Confidence grades how much a validation result can be trusted.
type Confidence string

// Confidence grades.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Issue tags recorded on validation results. These are audit warnings, not
// failures.
const (
	IssueTaskNotFound     = "task_not_found"
	IssueIncorrectGolden  = "incorrect_golden_set_answer"
	IssueSuspiciouslyFast = "suspiciously_fast_response"
	IssueSlowResponse     = "slow_response"
)

// ValidationResult is the immutable outcome of scoring one submission.
type ValidationResult struct {
	ValidationID  string     `json:"validation_id"`
	QualityScore  float64    `json:"quality_score"`
	Method        string     `json:"validation_method"`
	Issues        []string   `json:"issues_detected"`
	Confidence    Confidence `json:"confidence"`
	Feedback      string     `json:"feedback,omitempty"`
	AssignmentHit bool       `json:"-"`
}

// SubmissionRecord persists the outcome of an accepted submission.
type SubmissionRecord struct {
	TaskID       string    `json:"task_id"`
	SessionID    string    `json:"session_id"`
	PublisherID  string    `json:"publisher_id"`
	Response     string    `json:"response"`
	TimeSpentMS  int       `json:"time_spent_ms"`
	QualityScore float64   `json:"quality_score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// RewardType distinguishes a real reward from the absent one.
type RewardType string

// Reward types.
const (
	RewardContentAccess RewardType = "content_access"
	RewardNone          RewardType = "none"
)

// Reward is what a labeler earns for an accepted submission.
type Reward struct {
	Type            RewardType `json:"type"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
}

// SessionConfig is handed to the embedding widget at session init.
type SessionConfig struct {
	TaskIntervalSeconds    int    `json:"task_interval_seconds"`
	MinimumViewTimeSeconds int    `json:"minimum_view_time_seconds"`
	UITheme                string `json:"ui_theme"`
}

// Session is the transient session envelope stored alongside the profile.
type Session struct {
	SessionID   string    `json:"session_id"`
	PublisherID string    `json:"publisher_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
