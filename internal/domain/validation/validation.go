// Package validation scores submitted responses against a known calibration
// answer or behavioral heuristics.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/ids"
	"github.com/hotlabel/hotlabel/pkg/metrics"
)

// Validation methods.
const (
	MethodGoldenSet = "golden_set"
	MethodConsensus = "consensus"
	MethodUnknown   = "unknown"
)

// Scoring constants.
const (
	missingAssignmentScore = 0.2
	goldenMatchScore       = 1.0
	goldenMismatchScore    = 0.3
	consensusBaseScore     = 0.8

	fastResponseThresholdMS = 500
	fastResponseFactor      = 0.5
	slowResponseThresholdMS = 30000
	slowResponseFactor      = 0.9

	resultTTL = 24 * time.Hour
)

// Method is the scoring strategy derived from an assignment. Exactly one
// variant applies per submission.
type Method interface {
	score(response string, timeSpentMS int) model.ValidationResult
}

// GoldenSet scores against a known expected answer.
type GoldenSet struct {
	Expected string
}

func (g GoldenSet) score(response string, _ int) model.ValidationResult {
	if response == g.Expected {
		return model.ValidationResult{
			QualityScore: goldenMatchScore,
			Method:       MethodGoldenSet,
			Confidence:   model.ConfidenceHigh,
		}
	}
	return model.ValidationResult{
		QualityScore: goldenMismatchScore,
		Method:       MethodGoldenSet,
		Issues:       []string{model.IssueIncorrectGolden},
		Confidence:   model.ConfidenceHigh,
	}
}

// Consensus scores by behavioral heuristics. No ground truth is available
// here; cross-referencing against other labelers' answers happens in a later
// aggregation step that may revise the score.
type Consensus struct{}

func (Consensus) score(_ string, timeSpentMS int) model.ValidationResult {
	result := model.ValidationResult{
		QualityScore: consensusBaseScore,
		Method:       MethodConsensus,
		Confidence:   model.ConfidenceMedium,
	}
	if timeSpentMS < fastResponseThresholdMS {
		result.QualityScore *= fastResponseFactor
		result.Issues = append(result.Issues, model.IssueSuspiciouslyFast)
	}
	if timeSpentMS > slowResponseThresholdMS {
		result.QualityScore *= slowResponseFactor
		result.Issues = append(result.Issues, model.IssueSlowResponse)
	}
	return result
}

// methodFor derives the scoring variant from the loaded assignment.
func methodFor(a *model.Assignment) Method {
	if a.GoldenSet {
		return GoldenSet{Expected: a.ExpectedAnswer}
	}
	return Consensus{}
}

// Store is the slice of the shared store the validator needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Request carries one submission into the validator.
type Request struct {
	TaskID      string
	SessionID   string
	PublisherID string
	Response    string
	TimeSpentMS int
}

// Validator scores submissions and persists the results for audit.
type Validator struct {
	store Store
}

// New creates a validator over the shared store.
func New(s Store) *Validator {
	return &Validator{store: s}
}

// Validate loads the assignment for the submitted task, scores the response,
// and persists the result. A missing or expired assignment yields the
// lowest-confidence result with AssignmentHit false, which the caller uses
// to skip reward computation; that result is not persisted since there is
// nothing to audit.
func (v *Validator) Validate(ctx context.Context, req Request) (model.ValidationResult, error) {
	assignment, err := v.loadAssignment(ctx, req.TaskID)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if assignment == nil {
		return model.ValidationResult{
			ValidationID: ids.Validation(),
			QualityScore: missingAssignmentScore,
			Method:       MethodUnknown,
			Issues:       []string{model.IssueTaskNotFound},
			Confidence:   model.ConfidenceLow,
			Feedback:     "Task assignment not found or expired",
		}, nil
	}

	result := methodFor(assignment).score(req.Response, req.TimeSpentMS)
	result.ValidationID = ids.Validation()
	result.AssignmentHit = true
	for _, issue := range result.Issues {
		metrics.RecordValidationIssue(issue)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("encode validation result: %w", err)
	}
	if err := v.store.Set(ctx, store.ValidationKey(result.ValidationID), string(encoded), resultTTL); err != nil {
		return model.ValidationResult{}, fmt.Errorf("store validation result: %w", err)
	}
	return result, nil
}

func (v *Validator) loadAssignment(ctx context.Context, taskID string) (*model.Assignment, error) {
	raw, found, err := v.store.Get(ctx, store.AssignmentKey(taskID))
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if !found {
		return nil, nil
	}
	var a model.Assignment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decode assignment: %w", err)
	}
	return &a, nil
}
