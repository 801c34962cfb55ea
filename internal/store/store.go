// Package store holds the authoritative project tree.
//
// The tree is treated as an immutable value: every mutation builds a new
// Project (sharing untouched challenges) and swaps it in as a whole, so a
// reader that obtained a tree from Current never sees it change.
package store

import (
	"sync"
	"time"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/models"
)

// ChangeFunc is called after every successful replacement with the new tree.
type ChangeFunc func(p *models.Project)

// Store owns the current project tree.
type Store struct {
	mu       sync.RWMutex
	project  *models.Project
	lastID   int64
	now      func() time.Time
	onChange []ChangeFunc
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for model ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDFloor makes generated ids strictly greater than floor. Used to stay
// above ids persisted by an earlier run.
func WithIDFloor(floor int64) Option {
	return func(s *Store) {
		s.lastID = floor
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a callback run after each replacement.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Current returns the current tree, or nil when nothing is loaded.
// The returned value must not be modified.
func (s *Store) Current() *models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// Replace swaps in p as the new tree.
func (s *Store) Replace(p *models.Project) {
	s.mu.Lock()
	s.project = p
	callbacks := s.onChange
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(p)
	}
}

// NextModelID reserves an id for a new model. Ids are time-derived
// (milliseconds), strictly increasing, and distinct from every id in the
// current tree.
func (s *Store) NextModelID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked(s.project.IDs())
}

func (s *Store) nextIDLocked(used map[int64]struct{}) int64 {
	id := max(s.now().UnixMilli(), s.lastID+1)
	for {
		if _, taken := used[id]; !taken {
			break
		}
		id++
	}
	s.lastID = id
	return id
}

// AddModel appends a new model named name to the challenge challengeID.
// The tree is left unchanged when no project is loaded (apperr.ErrNoProject)
// or no challenge matches (apperr.ErrNotFound).
func (s *Store) AddModel(challengeID int64, name string) (models.BiologicalModel, error) {
	return s.appendModel(challengeID, func() models.BiologicalModel {
		return models.BiologicalModel{ID: s.nextIDLocked(s.project.IDs()), Name: name}
	})
}

// AppendModel appends an already identified model, with the same failure
// modes as AddModel.
func (s *Store) AppendModel(challengeID int64, m models.BiologicalModel) error {
	_, err := s.appendModel(challengeID, func() models.BiologicalModel {
		return m
	})
	return err
}

func (s *Store) appendModel(challengeID int64, build func() models.BiologicalModel) (models.BiologicalModel, error) {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return models.BiologicalModel{}, apperr.ErrNoProject
	}
	if s.project.Challenge(challengeID) == nil {
		s.mu.Unlock()
		return models.BiologicalModel{}, apperr.ErrNotFound
	}
	m := build()
	s.project = WithModel(s.project, challengeID, m)
	p := s.project
	callbacks := s.onChange
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(p)
	}
	return m, nil
}

// RemoveModel drops the model modelID from the tree. It reports whether a
// model was removed.
func (s *Store) RemoveModel(modelID int64) bool {
	s.mu.Lock()
	next, ok := WithoutModel(s.project, modelID)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.project = next
	callbacks := s.onChange
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
	return true
}

// WithModel returns a copy of p with m appended to challenge challengeID.
// Only the challenge slice and the matching challenge's model slice are
// copied; everything else is shared with p. p is returned as is when no
// challenge matches.
func WithModel(p *models.Project, challengeID int64, m models.BiologicalModel) *models.Project {
	if p == nil || p.Challenge(challengeID) == nil {
		return p
	}
	next := *p
	next.TechnicalChallenges = make([]models.TechnicalChallenge, len(p.TechnicalChallenges))
	copy(next.TechnicalChallenges, p.TechnicalChallenges)
	for i := range next.TechnicalChallenges {
		c := &next.TechnicalChallenges[i]
		if c.ID != challengeID {
			continue
		}
		modelsCopy := make([]models.BiologicalModel, len(c.BiologicalModels), len(c.BiologicalModels)+1)
		copy(modelsCopy, c.BiologicalModels)
		c.BiologicalModels = append(modelsCopy, m)
	}
	return &next
}

// WithoutModel returns a copy of p with the model modelID removed, and
// whether it was found.
func WithoutModel(p *models.Project, modelID int64) (*models.Project, bool) {
	if p == nil {
		return p, false
	}
	for i, c := range p.TechnicalChallenges {
		for j, m := range c.BiologicalModels {
			if m.ID != modelID {
				continue
			}
			next := *p
			next.TechnicalChallenges = make([]models.TechnicalChallenge, len(p.TechnicalChallenges))
			copy(next.TechnicalChallenges, p.TechnicalChallenges)
			kept := make([]models.BiologicalModel, 0, len(c.BiologicalModels)-1)
			kept = append(kept, c.BiologicalModels[:j]...)
			kept = append(kept, c.BiologicalModels[j+1:]...)
			next.TechnicalChallenges[i].BiologicalModels = kept
			return &next, true
		}
	}
	return p, false
}
