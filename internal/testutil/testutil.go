// Package testutil provides shared test helpers for databases, project
// fixtures and stub sources.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/asteria/internal/index"
	"github.com/starford/asteria/internal/models"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "asteria-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Project returns the reference tree: project 42 with challenge 101
// (models 201, 202) and challenge 102 (model 203).
func Project() *models.Project {
	return &models.Project{
		ID:   42,
		Name: "Artificial Photosynthesis System",
		TechnicalChallenges: []models.TechnicalChallenge{
			{
				ID:   101,
				Name: "Develop efficient light-harvesting complexes",
				BiologicalModels: []models.BiologicalModel{
					{ID: 201, Name: "Chlorophyll-Inspired Synthetic Pigments"},
					{ID: 202, Name: "Quantum Dot Arrays Mimicking Photosystem II"},
				},
			},
			{
				ID:   102,
				Name: "Design catalytic systems for water oxidation",
				BiologicalModels: []models.BiologicalModel{
					{ID: 203, Name: "Manganese-Calcium Complex"},
				},
			},
		},
	}
}

// StubSource is a source.Source returning a fixed project or error.
type StubSource struct {
	mu      sync.Mutex
	Project *models.Project
	Err     error
	Calls   int
}

// Fetch returns a fresh copy of the configured project.
func (s *StubSource) Fetch(_ context.Context, _ int64) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Project == nil {
		return Project(), nil
	}
	cp := *s.Project
	cp.TechnicalChallenges = append([]models.TechnicalChallenge(nil), s.Project.TechnicalChallenges...)
	return &cp, nil
}

// Set replaces the project and error returned by Fetch.
func (s *StubSource) Set(p *models.Project, err error) {
	s.mu.Lock()
	s.Project = p
	s.Err = err
	s.mu.Unlock()
}

// RecordingNotifier collects published change kinds.
type RecordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

// PublishChange records kind.
func (n *RecordingNotifier) PublishChange(kind string, _ any) {
	n.mu.Lock()
	n.kinds = append(n.kinds, kind)
	n.mu.Unlock()
}

// Kinds returns the recorded kinds in order.
func (n *RecordingNotifier) Kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.kinds...)
}
