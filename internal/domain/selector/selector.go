// Package selector decides which task a session receives next, injects
// calibration tasks for new labelers, and records assignment leases.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/ids"
	"github.com/hotlabel/hotlabel/pkg/logger"
	"github.com/hotlabel/hotlabel/pkg/metrics"
)

// Lifecycle defaults.
const (
	defaultPlatformMaxComplexity = 3
	defaultAssignmentTTL         = time.Hour
	defaultLeaseTTL              = 5 * time.Minute
	defaultBatchViewTTL          = 30 * time.Minute
	defaultMaxBatchSize          = 100
)

// Filters narrow a catalog lookup.
type Filters struct {
	Language      string
	Category      string
	TaskType      string
	MaxComplexity int
	GoldenSet     bool
}

// Source is the task catalog the selector draws from.
type Source interface {
	FindTask(ctx context.Context, filters Filters) (*model.Task, error)
	FindTasks(ctx context.Context, count int, filters Filters) ([]model.Task, error)
}

// Profiles is the slice of the profile manager the selector needs.
type Profiles interface {
	Load(ctx context.Context, publisherID, sessionID string) (*model.Profile, error)
	CompletedCount(ctx context.Context, sessionID string) (int, error)
}

// Store is the slice of the shared store the selector needs.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// NextRequest asks for the next task for a session.
type NextRequest struct {
	SessionID   string
	PublisherID string
	Language    string
	Category    string
}

// BatchRequest asks for a batch of tasks for a session.
type BatchRequest struct {
	SessionID   string
	PublisherID string
	Count       int
	Language    string
	Category    string
	TaskType    string
}

// Selector chooses tasks for sessions.
type Selector struct {
	store         Store
	source        Source
	profiles      Profiles
	platformMax   int
	assignmentTTL time.Duration
	leaseTTL      time.Duration
	batchViewTTL  time.Duration
	maxBatchSize  int
	now           func() time.Time
	log           logger.Logger
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithPlatformMaxComplexity overrides the platform-wide complexity ceiling.
func WithPlatformMaxComplexity(max int) Option {
	return func(s *Selector) {
		if max > 0 {
			s.platformMax = max
		}
	}
}

// WithAssignmentTTL overrides the assignment record lifetime.
func WithAssignmentTTL(ttl time.Duration) Option {
	return func(s *Selector) {
		if ttl > 0 {
			s.assignmentTTL = ttl
		}
	}
}

// WithLeaseTTL overrides the per-task lease lifetime.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Selector) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithMaxBatchSize overrides the batch size ceiling.
func WithMaxBatchSize(max int) Option {
	return func(s *Selector) {
		if max > 0 {
			s.maxBatchSize = max
		}
	}
}

// WithClock overrides the selector's clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a task selector.
func New(st Store, src Source, profiles Profiles, opts ...Option) *Selector {
	s := &Selector{
		store:         st,
		source:        src,
		profiles:      profiles,
		platformMax:   defaultPlatformMaxComplexity,
		assignmentTTL: defaultAssignmentTTL,
		leaseTTL:      defaultLeaseTTL,
		batchViewTTL:  defaultBatchViewTTL,
		maxBatchSize:  defaultMaxBatchSize,
		now:           time.Now,
		log:           logger.Named("selector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectNext picks the next task for a session. A new beginner's very first
// task is always a calibration task with a known answer. Returns nil when
// the session is unknown or nothing in the catalog matches.
func (s *Selector) SelectNext(ctx context.Context, req NextRequest) (*model.TaskView, error) {
	p, err := s.profiles.Load(ctx, req.PublisherID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("select next: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	completed, err := s.profiles.CompletedCount(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("select next: %w", err)
	}

	filters := Filters{
		Language:      req.Language,
		Category:      req.Category,
		MaxComplexity: min(p.MaxComplexity, s.platformMax),
		GoldenSet:     p.ExpertiseLevel == model.ExpertiseBeginner && completed == 0,
	}
	if filters.Language == "" {
		filters.Language = p.Language
	}

	task, err := s.source.FindTask(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task == nil && filters.GoldenSet {
		// Catalog has no calibration task for these filters; serve a
		// regular one rather than starving the session.
		filters.GoldenSet = false
		if task, err = s.source.FindTask(ctx, filters); err != nil {
			return nil, fmt.Errorf("find task: %w", err)
		}
	}
	if task == nil {
		return nil, nil
	}

	now := s.now()
	assignment := model.Assignment{
		TaskID:          task.ID,
		TaskType:        task.Type,
		GoldenSet:       filters.GoldenSet,
		PublisherID:     req.PublisherID,
		SessionID:       req.SessionID,
		ComplexityLevel: task.ComplexityLevel,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.assignmentTTL),
	}
	if filters.GoldenSet {
		assignment.ExpectedAnswer = task.KnownAnswer
	}

	encoded, err := json.Marshal(assignment)
	if err != nil {
		return nil, fmt.Errorf("encode assignment: %w", err)
	}
	if err := s.store.Set(ctx, store.AssignmentKey(task.ID), string(encoded), s.assignmentTTL); err != nil {
		return nil, fmt.Errorf("store assignment: %w", err)
	}
	if err := s.store.Set(ctx, store.LeaseKey(task.ID), req.SessionID, s.leaseTTL); err != nil {
		return nil, fmt.Errorf("store lease: %w", err)
	}

	metrics.RecordTaskServed()
	if filters.GoldenSet {
		metrics.RecordGoldenInjection()
		s.log.Debug(ctx, "injected calibration task",
			logger.String("task_id", task.ID),
			logger.String("session_id", req.SessionID))
	}

	return &model.TaskView{
		TaskID:              task.ID,
		TaskType:            task.Type,
		Content:             task.Content,
		Options:             task.Options,
		TimeEstimateSeconds: task.TimeEstimateSeconds,
		ComplexityLevel:     task.ComplexityLevel,
		GoldenSet:           filters.GoldenSet,
		ExpiresAt:           assignment.ExpiresAt,
	}, nil
}

// SelectBatch hands out up to Count tasks as one expiring batch. Batches
// carry no calibration tasks and no per-task leases. Returns nil when the
// session is unknown.
func (s *Selector) SelectBatch(ctx context.Context, req BatchRequest) (*model.Batch, error) {
	p, err := s.profiles.Load(ctx, req.PublisherID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("select batch: %w", err)
	}
	if p == nil {
		return nil, nil
	}

	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > s.maxBatchSize {
		count = s.maxBatchSize
	}

	filters := Filters{
		Language:      req.Language,
		Category:      req.Category,
		TaskType:      req.TaskType,
		MaxComplexity: min(p.MaxComplexity, s.platformMax),
	}
	if filters.Language == "" {
		filters.Language = p.Language
	}

	tasks, err := s.source.FindTasks(ctx, count, filters)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	batch := &model.Batch{
		BatchID:   ids.Batch(),
		Tasks:     make([]model.TaskSummary, 0, len(tasks)),
		ExpiresAt: s.now().Add(s.batchViewTTL),
	}
	for _, t := range tasks {
		batch.Tasks = append(batch.Tasks, model.TaskSummary{
			TaskID:          t.ID,
			TaskType:        t.Type,
			Content:         t.Content,
			Options:         t.Options,
			ComplexityLevel: t.ComplexityLevel,
		})
	}
	if len(batch.Tasks) == 0 {
		return batch, nil
	}

	encoded, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	if err := s.store.Set(ctx, store.BatchKey(batch.BatchID), string(encoded), s.batchViewTTL); err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}
	metrics.RecordBatchServed()
	return batch, nil
}
