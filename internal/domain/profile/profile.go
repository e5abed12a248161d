// Package profile manages the short-lived per-session labeler profile that
// personalizes task selection.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/ids"
)

// Default session configuration constants.
const (
	defaultSessionTTL         = 24 * time.Hour
	defaultTaskInterval       = 300
	defaultMinimumViewSeconds = 3
	defaultUITheme            = "light"
)

// Expertise upgrade thresholds derived from reported performance.
const (
	intermediateAccuracy    = 0.85
	intermediateCompletions = 10
	expertAccuracy          = 0.9
	expertCompletions       = 50
)

// Store is the slice of the shared store the manager needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// ClientInfo describes the embedding environment at session init.
type ClientInfo struct {
	Browser          string `json:"browser" validate:"required"`
	BrowserVersion   string `json:"browser_version"`
	OS               string `json:"os"`
	ScreenResolution string `json:"screen_resolution"`
	Language         string `json:"language" validate:"required"`
	Timezone         string `json:"timezone,omitempty"`
	ReferringURL     string `json:"referring_url,omitempty"`
	DeviceType       string `json:"device_type,omitempty"`
}

// ConsentSettings records what the end-user agreed to.
type ConsentSettings struct {
	Functional bool `json:"functional"`
	Analytics  bool `json:"analytics"`
}

// InitRequest starts a new labeling session.
type InitRequest struct {
	PublisherID string          `json:"publisher_id" validate:"required"`
	ClientInfo  ClientInfo      `json:"client_info" validate:"required"`
	Consent     ConsentSettings `json:"consent"`
}

// InitResult is returned to the widget after session init.
type InitResult struct {
	SessionID string              `json:"session_id"`
	ExpiresAt time.Time           `json:"expires_at"`
	Profile   model.Profile       `json:"profile"`
	Config    model.SessionConfig `json:"config"`
}

// PerformanceMetrics reports observed labeler performance for profile
// updates.
type PerformanceMetrics struct {
	Accuracy        float64 `json:"accuracy" validate:"gte=0,lte=1"`
	AverageTimeMS   int     `json:"average_time_ms"`
	TaskCompletions int     `json:"task_completions" validate:"gte=0"`
}

// UpdateRequest adjusts an existing profile.
type UpdateRequest struct {
	PublisherID         string              `json:"publisher_id" validate:"required"`
	ExpertiseAreas      []string            `json:"expertise_areas,omitempty"`
	TaskPreferences     []string            `json:"task_preferences,omitempty"`
	LanguageProficiency map[string]string   `json:"language_proficiency,omitempty"`
	PerformanceMetrics  *PerformanceMetrics `json:"performance_metrics,omitempty"`
}

// Stats summarizes a session's contributions.
type Stats struct {
	TasksCompleted       int                  `json:"tasks_completed"`
	ExpertiseLevel       model.ExpertiseLevel `json:"expertise_level"`
	ContentAccessMinutes int                  `json:"content_access_minutes"`
}

// Manager owns the profile lifecycle in the shared store.
type Manager struct {
	store      Store
	sessionTTL time.Duration
	now        func() time.Time
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.sessionTTL = ttl
		}
	}
}

// WithClock overrides the manager's clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a profile manager over the shared store.
func NewManager(s Store, opts ...Option) *Manager {
	m := &Manager{
		store:      s,
		sessionTTL: defaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitSession creates a session, a beginner profile derived from the client
// info, and a zeroed completion counter, all expiring with the session.
func (m *Manager) InitSession(ctx context.Context, req InitRequest) (InitResult, error) {
	sessionID := ids.Session()
	now := m.now()
	expiresAt := now.Add(m.sessionTTL)

	prefs := []string{"vqa", "text_classification"}
	if req.ClientInfo.DeviceType == "mobile" {
		// Visual tasks only on small screens.
		prefs = []string{"vqa"}
	}

	p := model.Profile{
		SessionID:       sessionID,
		PublisherID:     req.PublisherID,
		Language:        normalizeLanguage(req.ClientInfo.Language),
		ExpertiseLevel:  model.ExpertiseBeginner,
		TaskPreferences: prefs,
		MaxComplexity:   model.MaxComplexityFor(model.ExpertiseBeginner),
	}

	session := model.Session{
		SessionID:   sessionID,
		PublisherID: req.PublisherID,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if err := m.setJSON(ctx, store.SessionKey(req.PublisherID, sessionID), session); err != nil {
		return InitResult{}, err
	}
	if err := m.setJSON(ctx, store.ProfileKey(req.PublisherID, sessionID), p); err != nil {
		return InitResult{}, err
	}
	if err := m.store.Set(ctx, store.CompletedKey(sessionID), "0", m.sessionTTL); err != nil {
		return InitResult{}, fmt.Errorf("init completion counter: %w", err)
	}

	return InitResult{
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Profile:   p,
		Config: model.SessionConfig{
			TaskIntervalSeconds:    defaultTaskInterval,
			MinimumViewTimeSeconds: defaultMinimumViewSeconds,
			UITheme:                defaultUITheme,
		},
	}, nil
}

// Load returns the profile for a session, or nil when the session is
// unknown or expired.
func (m *Manager) Load(ctx context.Context, publisherID, sessionID string) (*model.Profile, error) {
	raw, found, err := m.store.Get(ctx, store.ProfileKey(publisherID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Update applies a profile update and re-derives the complexity ceiling
// from the (possibly upgraded) expertise level. Returns nil when the
// session is unknown.
func (m *Manager) Update(ctx context.Context, sessionID string, req UpdateRequest) (*model.Profile, error) {
	p, err := m.Load(ctx, req.PublisherID, sessionID)
	if err != nil || p == nil {
		return nil, err
	}

	if req.PerformanceMetrics != nil {
		pm := req.PerformanceMetrics
		if pm.Accuracy >= intermediateAccuracy && pm.TaskCompletions >= intermediateCompletions {
			p.ExpertiseLevel = model.ExpertiseIntermediate
		}
		if pm.Accuracy >= expertAccuracy && pm.TaskCompletions >= expertCompletions {
			p.ExpertiseLevel = model.ExpertiseExpert
		}
	}
	p.MaxComplexity = model.MaxComplexityFor(p.ExpertiseLevel)

	if len(req.ExpertiseAreas) > 0 {
		p.ExpertiseAreas = req.ExpertiseAreas
	}
	if len(req.TaskPreferences) > 0 {
		p.TaskPreferences = req.TaskPreferences
	}
	if len(req.LanguageProficiency) > 0 {
		p.PreferredLanguages = rankLanguages(req.LanguageProficiency)
		p.Language = p.PreferredLanguages[0]
	}

	if err := m.setJSON(ctx, store.ProfileKey(req.PublisherID, sessionID), *p); err != nil {
		return nil, err
	}
	return p, nil
}

// CompletedCount returns the session's completion counter.
func (m *Manager) CompletedCount(ctx context.Context, sessionID string) (int, error) {
	raw, found, err := m.store.Get(ctx, store.CompletedKey(sessionID))
	if err != nil {
		return 0, fmt.Errorf("load completion counter: %w", err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// IncrementCompleted advances the session's completion counter.
func (m *Manager) IncrementCompleted(ctx context.Context, sessionID string) (int64, error) {
	n, err := m.store.Incr(ctx, store.CompletedKey(sessionID), m.sessionTTL)
	if err != nil {
		return 0, fmt.Errorf("increment completion counter: %w", err)
	}
	return n, nil
}

// Stats summarizes the session's contributions, or nil when the session is
// unknown.
func (m *Manager) Stats(ctx context.Context, publisherID, sessionID string) (*Stats, error) {
	p, err := m.Load(ctx, publisherID, sessionID)
	if err != nil || p == nil {
		return nil, err
	}
	completed, err := m.CompletedCount(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TasksCompleted:       completed,
		ExpertiseLevel:       p.ExpertiseLevel,
		ContentAccessMinutes: completed * 5,
	}, nil
}

func (m *Manager) setJSON(ctx context.Context, key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := m.store.Set(ctx, key, string(encoded), m.sessionTTL); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// normalizeLanguage reduces a BCP 47 tag to its base language: "en-US"
// becomes "en".
func normalizeLanguage(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	if tag == "" {
		return "en"
	}
	return tag
}

// proficiencyRank orders languages for preference sorting.
var proficiencyRank = map[string]int{
	"native":       3,
	"fluent":       2,
	"intermediate": 1,
	"beginner":     0,
}

func rankLanguages(proficiency map[string]string) []string {
	langs := make([]string, 0, len(proficiency))
	for lang := range proficiency {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		ri, iok := proficiencyRank[proficiency[langs[i]]]
		rj, jok := proficiencyRank[proficiency[langs[j]]]
		if !iok {
			ri = -1
		}
		if !jok {
			rj = -1
		}
		if ri != rj {
			return ri > rj
		}
		return langs[i] < langs[j]
	})
	return langs
}
