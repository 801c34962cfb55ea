package store

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/models"
)

func testProject() *models.Project {
	return &models.Project{
		ID:   42,
		Name: "Artificial Photosynthesis System",
		TechnicalChallenges: []models.TechnicalChallenge{
			{ID: 101, Name: "Light", BiologicalModels: []models.BiologicalModel{{ID: 201, Name: "a"}, {ID: 202, Name: "b"}}},
			{ID: 102, Name: "Water", BiologicalModels: []models.BiologicalModel{{ID: 203, Name: "c"}}},
		},
	}
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestAddModel_AppendsToMatchingChallenge(t *testing.T) {
	s := New()
	before := testProject()
	s.Replace(before)

	m, err := s.AddModel(101, "X")
	if err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if m.Name != "X" {
		t.Errorf("name = %q", m.Name)
	}

	after := s.Current()
	got := after.Challenge(101).BiologicalModels
	if len(got) != 3 {
		t.Fatalf("models = %d, want 3", len(got))
	}
	if got[2] != m {
		t.Errorf("last model = %+v, want %+v", got[2], m)
	}
	if _, dup := testProject().IDs()[m.ID]; dup {
		t.Errorf("id %d collides with an existing id", m.ID)
	}
	if !reflect.DeepEqual(after.Challenge(102), before.Challenge(102)) {
		t.Error("untouched challenge changed")
	}
}

func TestAddModel_CopyOnWrite(t *testing.T) {
	s := New()
	original := testProject()
	s.Replace(original)

	if _, err := s.AddModel(102, "Y"); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if len(original.Challenge(102).BiologicalModels) != 1 {
		t.Error("previous tree value was mutated")
	}
	if s.Current() == original {
		t.Error("expected a new tree value")
	}
}

func TestAddModel_UnknownChallenge(t *testing.T) {
	s := New()
	s.Replace(testProject())
	before := s.Current()

	_, err := s.AddModel(999, "X")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if s.Current() != before {
		t.Error("tree should be unchanged")
	}
	if s.Current().ModelCount() != 3 {
		t.Errorf("model count = %d, want 3", s.Current().ModelCount())
	}
}

func TestAddModel_NoProject(t *testing.T) {
	s := New()
	if _, err := s.AddModel(101, "X"); !errors.Is(err, apperr.ErrNoProject) {
		t.Fatalf("err = %v, want ErrNoProject", err)
	}
	if s.Current() != nil {
		t.Error("store should still be empty")
	}
}

func TestNextModelID_SkipsExistingIDs(t *testing.T) {
	s := New(WithClock(fixedClock(202)))
	s.Replace(testProject())

	m, err := s.AddModel(101, "X")
	if err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if m.ID != 204 {
		t.Errorf("id = %d, want 204 (202 and 203 are taken)", m.ID)
	}
}

func TestNextModelID_Monotonic(t *testing.T) {
	s := New(WithClock(fixedClock(1_000)))
	a := s.NextModelID()
	b := s.NextModelID()
	if b <= a {
		t.Errorf("ids not increasing: %d then %d", a, b)
	}
}

func TestNextModelID_Floor(t *testing.T) {
	s := New(WithClock(fixedClock(5)), WithIDFloor(100))
	if id := s.NextModelID(); id != 101 {
		t.Errorf("id = %d, want 101", id)
	}
}

func TestAddModel_ConcurrentIDsDistinct(t *testing.T) {
	s := New(WithClock(fixedClock(1_000)))
	s.Replace(testProject())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddModel(101, "m")
		}()
	}
	wg.Wait()

	p := s.Current()
	if got := len(p.Challenge(101).BiologicalModels); got != 52 {
		t.Fatalf("models = %d, want 52", got)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("ids should stay unique: %v", err)
	}
}

func TestOnChange(t *testing.T) {
	s := New()
	var calls []*models.Project
	s.OnChange(func(p *models.Project) { calls = append(calls, p) })

	s.Replace(testProject())
	_, _ = s.AddModel(101, "X")
	_, _ = s.AddModel(999, "ignored")

	if len(calls) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(calls))
	}
	if calls[1] != s.Current() {
		t.Error("callback should receive the new tree")
	}
}

func TestRemoveModel(t *testing.T) {
	s := New()
	original := testProject()
	s.Replace(original)

	if !s.RemoveModel(201) {
		t.Fatal("expected model 201 to be removed")
	}
	if got := s.Current().Challenge(101).BiologicalModels; len(got) != 1 || got[0].ID != 202 {
		t.Errorf("remaining = %+v", got)
	}
	if len(original.Challenge(101).BiologicalModels) != 2 {
		t.Error("previous tree value was mutated")
	}
	if s.RemoveModel(201) {
		t.Error("second removal should report false")
	}
}

func TestWithModel_UnknownChallengeReturnsInput(t *testing.T) {
	p := testProject()
	if got := WithModel(p, 7, models.BiologicalModel{ID: 1}); got != p {
		t.Error("expected the same pointer back")
	}
	if got := WithModel(nil, 7, models.BiologicalModel{ID: 1}); got != nil {
		t.Error("nil in, nil out")
	}
}
