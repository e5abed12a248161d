// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hotlabel/hotlabel/internal/adapters/catalog"
	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	"github.com/hotlabel/hotlabel/internal/domain/dedupe"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/domain/profile"
	"github.com/hotlabel/hotlabel/internal/domain/ratelimit"
	"github.com/hotlabel/hotlabel/internal/domain/reward"
	"github.com/hotlabel/hotlabel/internal/domain/selector"
	"github.com/hotlabel/hotlabel/internal/domain/validation"
	"github.com/hotlabel/hotlabel/pkg/logger"
	"github.com/hotlabel/hotlabel/pkg/metrics"
)

const submissionTTL = 24 * time.Hour

// Service wires the task-serving and quality-control pipeline together.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     store.Store
	source    selector.Source
	profiles  *profile.Manager
	selector  *selector.Selector
	validator *validation.Validator
	limiter   *ratelimit.Limiter
	rules     *ratelimit.Rules
	deduper   dedupe.Deduper

	// Configuration
	storeBackend  string
	badgerDir     string
	shardCount    int
	platformMax   int
	assignmentTTL time.Duration
	leaseTTL      time.Duration
	sessionTTL    time.Duration
	maxBatchSize  int
	dedupeSize    int
	ruleSpecs     []ratelimit.RuleSpec
	quotaTasks    string
	quotaBatch    string
	quotaSessions string
	defaultQuota  string

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreBackend selects the store backend, "memory" or "badger".
func WithStoreBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
	}
}

// WithBadgerDir sets the data directory for the badger backend.
func WithBadgerDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.badgerDir = dir
		}
	}
}

// WithShardCount sets the shard count for the memory backend.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithSource sets a custom task source.
func WithSource(src selector.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets a pre-built store, overriding backend selection.
// Intended for tests.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithRateLimitRules sets the ordered rate-limit rule table and the default
// quota for unmatched paths.
func WithRateLimitRules(specs []ratelimit.RuleSpec, defaultQuota string) Option {
	return func(s *Service) {
		s.ruleSpecs = specs
		if defaultQuota != "" {
			s.defaultQuota = defaultQuota
		}
	}
}

// WithQuotas sets the standard quota strings for the task API routes.
func WithQuotas(tasks, batch, sessions string) Option {
	return func(s *Service) {
		if tasks != "" {
			s.quotaTasks = tasks
		}
		if batch != "" {
			s.quotaBatch = batch
		}
		if sessions != "" {
			s.quotaSessions = sessions
		}
	}
}

// WithPlatformMaxComplexity sets the platform-wide complexity ceiling.
func WithPlatformMaxComplexity(max int) Option {
	return func(s *Service) {
		if max > 0 {
			s.platformMax = max
		}
	}
}

// WithAssignmentTTL sets the assignment record lifetime.
func WithAssignmentTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.assignmentTTL = ttl
		}
	}
}

// WithLeaseTTL sets the per-task lease lifetime.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithSessionTTL sets the session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithMaxBatchSize sets the batch size ceiling.
func WithMaxBatchSize(max int) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxBatchSize = max
		}
	}
}

// WithDedupeSize sets the size of the duplicate-submission cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeBackend:  "memory",
		badgerDir:     "data/store",
		shardCount:    8,
		platformMax:   3,
		assignmentTTL: time.Hour,
		leaseTTL:      5 * time.Minute,
		sessionTTL:    24 * time.Hour,
		maxBatchSize:  100,
		dedupeSize:    50000,
		quotaTasks:    "60/minute",
		quotaBatch:    "10/minute",
		quotaSessions: "20/minute",
		defaultQuota:  "120/minute",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting labeling service...")

	if s.store == nil {
		switch s.storeBackend {
		case "badger":
			st, err := store.NewBadgerStore(s.badgerDir)
			if err != nil {
				return fmt.Errorf("open badger store: %w", err)
			}
			s.store = st
			s.logger.Info(ctx, "using badger store", logger.String("dir", s.badgerDir))
		default:
			s.store = store.NewMemoryStore(store.WithShardCount(s.shardCount))
			s.logger.Info(ctx, "using memory store", logger.Int("shards", s.shardCount))
		}
	}

	if s.source == nil {
		s.source = catalog.New()
	}

	s.profiles = profile.NewManager(s.store, profile.WithSessionTTL(s.sessionTTL))
	s.selector = selector.New(s.store, s.source, s.profiles,
		selector.WithPlatformMaxComplexity(s.platformMax),
		selector.WithAssignmentTTL(s.assignmentTTL),
		selector.WithLeaseTTL(s.leaseTTL),
		selector.WithMaxBatchSize(s.maxBatchSize),
	)
	s.validator = validation.New(s.store)
	s.limiter = ratelimit.New(s.store)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	var rules *ratelimit.Rules
	var err error
	if len(s.ruleSpecs) > 0 {
		rules, err = ratelimit.NewRules(s.ruleSpecs, s.defaultQuota)
	} else {
		rules, err = ratelimit.DefaultRules(s.quotaTasks, s.quotaBatch, s.quotaSessions, s.defaultQuota)
	}
	if err != nil {
		return fmt.Errorf("build rate-limit rules: %w", err)
	}
	s.rules = rules

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "labeling service started",
		logger.String("backend", s.storeBackend),
		logger.Int("platformMaxComplexity", s.platformMax),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping labeling service...")

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "labeling service stopped")
}

// InitSession starts a new labeling session.
func (s *Service) InitSession(ctx context.Context, req profile.InitRequest) (profile.InitResult, error) {
	res, err := s.profiles.InitSession(ctx, req)
	if err != nil {
		return profile.InitResult{}, err
	}
	metrics.RecordSessionStarted()
	return res, nil
}

// UpdateProfile applies a profile update. Returns nil when the session is
// unknown.
func (s *Service) UpdateProfile(ctx context.Context, sessionID string, req profile.UpdateRequest) (*model.Profile, error) {
	return s.profiles.Update(ctx, sessionID, req)
}

// SessionStats summarizes a session's contributions. Returns nil when the
// session is unknown.
func (s *Service) SessionStats(ctx context.Context, publisherID, sessionID string) (*profile.Stats, error) {
	return s.profiles.Stats(ctx, publisherID, sessionID)
}

// NextTask selects the next task for a session. Returns nil when there is
// nothing to serve.
func (s *Service) NextTask(ctx context.Context, req selector.NextRequest) (*model.TaskView, error) {
	return s.selector.SelectNext(ctx, req)
}

// BatchTasks selects a batch of tasks for a session. Returns nil when the
// session is unknown.
func (s *Service) BatchTasks(ctx context.Context, req selector.BatchRequest) (*model.Batch, error) {
	return s.selector.SelectBatch(ctx, req)
}

// SubmitRequest carries one submitted response through the pipeline.
type SubmitRequest struct {
	TaskID      string
	SessionID   string
	PublisherID string
	Response    string
	TimeSpentMS int
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Success           bool
	ValidationID      string
	QualityScore      float64
	Issues            []string
	Feedback          string
	Reward            model.Reward
	NextTaskAvailable bool
}

// SubmitResult validates a submitted response, converts quality into a
// reward, and records the submission. Re-submitting the same task from the
// same session returns the new validation verdict but never records or
// counts the submission twice.
func (s *Service) SubmitResult(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	verdict, err := s.validator.Validate(ctx, validation.Request{
		TaskID:      req.TaskID,
		SessionID:   req.SessionID,
		PublisherID: req.PublisherID,
		Response:    req.Response,
		TimeSpentMS: req.TimeSpentMS,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("validate submission: %w", err)
	}

	if !verdict.AssignmentHit {
		return SubmitResult{
			Success:      false,
			ValidationID: verdict.ValidationID,
			QualityScore: verdict.QualityScore,
			Issues:       verdict.Issues,
			Feedback:     verdict.Feedback,
			Reward:       reward.None(),
		}, nil
	}

	record := model.SubmissionRecord{
		TaskID:       req.TaskID,
		SessionID:    req.SessionID,
		PublisherID:  req.PublisherID,
		Response:     req.Response,
		TimeSpentMS:  req.TimeSpentMS,
		QualityScore: verdict.QualityScore,
		SubmittedAt:  time.Now(),
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode submission record: %w", err)
	}

	// The local seen-cache short-circuits repeats that hit this instance;
	// the store's first-write-wins record stays authoritative.
	key := store.SubmissionKey(req.TaskID, req.SessionID)
	first := false
	if !s.deduper.SeenAndRecord(ctx, key) {
		first, err = s.store.SetNX(ctx, key, string(encoded), submissionTTL)
		if err != nil {
			s.deduper.Unrecord(ctx, key)
			return SubmitResult{}, fmt.Errorf("record submission: %w", err)
		}
	}
	if first {
		if _, err := s.profiles.IncrementCompleted(ctx, req.SessionID); err != nil {
			return SubmitResult{}, err
		}
		metrics.RecordSubmission(verdict.QualityScore)
	} else {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission ignored",
			logger.String("task_id", req.TaskID),
			logger.String("session_id", req.SessionID),
		)
	}

	return SubmitResult{
		Success:           true,
		ValidationID:      verdict.ValidationID,
		QualityScore:      verdict.QualityScore,
		Issues:            verdict.Issues,
		Feedback:          verdict.Feedback,
		Reward:            reward.For(verdict.QualityScore),
		NextTaskAvailable: true,
	}, nil
}

// CheckRateLimit resolves the quota for a request path and applies the
// sliding-window limiter for the caller.
func (s *Service) CheckRateLimit(ctx context.Context, publisherID, path string) ratelimit.Decision {
	quota := s.rules.Resolve(path)
	return s.limiter.Check(ctx, store.RateLimitKey(publisherID, path), quota.Limit, quota.WindowSeconds)
}

// Stats describes the running service.
type Stats struct {
	Backend       string  `json:"backend"`
	StoreEntries  int     `json:"store_entries"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// GetStats reports operational statistics.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Backend: s.storeBackend}
	if s.started {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	if counter, ok := s.store.(interface{ Len() int }); ok {
		st.StoreEntries = counter.Len()
		metrics.UpdateStoreEntries(st.StoreEntries)
	}
	return st
}

// Healthy reports whether the service is started and its store reachable.
func (s *Service) Healthy(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}
	_, _, err := s.store.Get(ctx, "health:probe")
	return err == nil
}
