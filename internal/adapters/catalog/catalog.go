// Package catalog is an in-memory task source seeded with a small task
// inventory. A production deployment replaces it with a real catalog
// service behind the same interface.
package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/domain/selector"
)

// Catalog serves tasks from a fixed in-memory inventory.
type Catalog struct {
	mu     sync.Mutex
	tasks  []model.Task
	cursor int
}

// New creates a catalog over the given inventory. With no tasks given the
// default seed inventory is used.
func New(tasks ...model.Task) *Catalog {
	if len(tasks) == 0 {
		tasks = seedTasks()
	}
	return &Catalog{tasks: tasks}
}

// FindTask returns one task matching the filters, rotating through the
// inventory so repeated calls do not always hand out the same task. Returns
// nil when nothing matches.
func (c *Catalog) FindTask(_ context.Context, filters selector.Filters) (*model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.tasks)
	for i := range n {
		t := c.tasks[(c.cursor+i)%n]
		if matches(t, filters) {
			c.cursor = (c.cursor + i + 1) % n
			return &t, nil
		}
	}
	return nil, nil
}

// FindTasks returns up to count tasks matching the filters. Calibration
// tasks are never included in batches.
func (c *Catalog) FindTasks(_ context.Context, count int, filters selector.Filters) ([]model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filters.GoldenSet = false
	var out []model.Task
	for _, t := range c.tasks {
		if len(out) == count {
			break
		}
		if matches(t, filters) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matches(t model.Task, f selector.Filters) bool {
	if (t.KnownAnswer != "") != f.GoldenSet {
		return false
	}
	if f.Language != "" && t.Language != f.Language {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.TaskType != "" && t.Type != f.TaskType {
		return false
	}
	if f.MaxComplexity > 0 && t.ComplexityLevel > f.MaxComplexity {
		return false
	}
	return true
}

func seedTasks() []model.Task {
	return []model.Task{
		{
			ID:   uuid.NewString(),
			Type: "vqa",
			Content: model.TaskContent{
				ImageURL: "https://tasks.hotlabel.io/images/street-scene-01.jpg",
				Question: "Is there a bicycle in this image?",
			},
			Options:             []string{"yes", "no", "unsure"},
			Language:            "en",
			Category:            "object_detection",
			ComplexityLevel:     1,
			TimeEstimateSeconds: 10,
			KnownAnswer:         "yes",
		},
		{
			ID:   uuid.NewString(),
			Type: "vqa",
			Content: model.TaskContent{
				ImageURL: "https://tasks.hotlabel.io/images/kitchen-02.jpg",
				Question: "How many people are visible?",
			},
			Options:             []string{"0", "1", "2", "3+"},
			Language:            "en",
			Category:            "object_detection",
			ComplexityLevel:     2,
			TimeEstimateSeconds: 15,
		},
		{
			ID:   uuid.NewString(),
			Type: "text_classification",
			Content: model.TaskContent{
				Text:     "The delivery was late and the package arrived damaged.",
				Question: "What is the sentiment of this review?",
			},
			Options:             []string{"positive", "neutral", "negative"},
			Language:            "en",
			Category:            "sentiment",
			ComplexityLevel:     1,
			TimeEstimateSeconds: 12,
		},
		{
			ID:   uuid.NewString(),
			Type: "text_classification",
			Content: model.TaskContent{
				Text:     "Das Produkt funktioniert einwandfrei, sehr zufrieden.",
				Question: "Wie ist die Stimmung dieser Bewertung?",
			},
			Options:             []string{"positiv", "neutral", "negativ"},
			Language:            "de",
			Category:            "sentiment",
			ComplexityLevel:     1,
			TimeEstimateSeconds: 12,
			KnownAnswer:         "positiv",
		},
		{
			ID:   uuid.NewString(),
			Type: "vqa",
			Content: model.TaskContent{
				ImageURL: "https://tasks.hotlabel.io/images/chart-03.jpg",
				Question: "Which quarter shows the highest revenue?",
			},
			Options:             []string{"Q1", "Q2", "Q3", "Q4"},
			Language:            "en",
			Category:            "data_extraction",
			ComplexityLevel:     3,
			TimeEstimateSeconds: 25,
		},
		{
			ID:   uuid.NewString(),
			Type: "text_classification",
			Content: model.TaskContent{
				Text:     "Refactor the ingestion worker to batch writes before compaction.",
				Question: "Is this text about software engineering?",
			},
			Options:             []string{"yes", "no"},
			Language:            "en",
			Category:            "topic",
			ComplexityLevel:     4,
			TimeEstimateSeconds: 20,
		},
	}
}
