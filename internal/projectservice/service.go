// Package projectservice coordinates the project source, the tree store,
// local model persistence and the diagram layout.
package projectservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/checksum"
	"github.com/starford/asteria/internal/index"
	"github.com/starford/asteria/internal/layout"
	"github.com/starford/asteria/internal/models"
	"github.com/starford/asteria/internal/parser"
	"github.com/starford/asteria/internal/source"
	"github.com/starford/asteria/internal/sse"
	"github.com/starford/asteria/internal/store"
)

// maxNameLength bounds model names accepted from clients.
const maxNameLength = 500

// Notifier receives change notifications. *sse.Broker satisfies it.
type Notifier interface {
	PublishChange(kind string, data any)
}

type nopNotifier struct{}

func (nopNotifier) PublishChange(string, any) {}

// Snapshot is a computed diagram together with its content hash.
type Snapshot struct {
	Diagram  layout.Diagram
	Checksum string
}

// Service owns the project lifecycle for one project id.
type Service struct {
	projectID int64
	src       source.Source
	store     *store.Store
	db        index.ModelIndex
	notifier  Notifier
	layout    layout.Options
	logger    *slog.Logger

	mu       sync.RWMutex
	snapshot Snapshot
	loadedAt time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLayout sets the layout options.
func WithLayout(opts layout.Options) Option {
	return func(s *Service) {
		s.layout = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a service for projectID. The diagram is recomputed in full
// every time st changes.
func New(projectID int64, src source.Source, st *store.Store, db index.ModelIndex, opts ...Option) *Service {
	s := &Service{
		projectID: projectID,
		src:       src,
		store:     st,
		db:        db,
		notifier:  nopNotifier{},
		layout:    layout.DefaultOptions(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recompute()
	st.OnChange(func(*models.Project) { s.recompute() })
	return s
}

// recompute lays out the latest tree. It reads the store rather than the
// callback argument so that out-of-order callbacks still converge on the
// newest tree.
func (s *Service) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := layout.Compute(s.store.Current(), s.layout)
	sum, err := d.Checksum()
	if err != nil {
		s.logger.Error("diagram checksum failed", slog.String("error", err.Error()))
	}
	s.snapshot = Snapshot{Diagram: d, Checksum: sum}
}

// ProjectID returns the id of the served project.
func (s *Service) ProjectID() int64 {
	return s.projectID
}

// Load fetches the project, overlays locally added models and replaces the
// current tree. When the source fails, the last stored snapshot is used
// instead, if any.
func (s *Service) Load(ctx context.Context) (*models.Project, error) {
	p, err := s.src.Fetch(ctx, s.projectID)
	if err != nil {
		fallback, fbErr := s.loadSnapshot(ctx)
		if fbErr != nil {
			return nil, fmt.Errorf("projectservice: load project %d: %w", s.projectID, err)
		}
		s.logger.Warn("using stored project snapshot",
			slog.Int64("project_id", s.projectID),
			slog.String("error", err.Error()))
		p = fallback
	} else {
		s.saveSnapshot(ctx, p)
	}

	locals, err := s.db.ModelsForProject(ctx, s.projectID)
	if err != nil {
		return nil, fmt.Errorf("projectservice: local models: %w", err)
	}
	p, skipped := Overlay(p, locals)
	if skipped > 0 {
		s.logger.Warn("local models skipped",
			slog.Int64("project_id", s.projectID),
			slog.Int("count", skipped))
	}

	s.store.Replace(p)
	s.mu.Lock()
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("project loaded",
		slog.Int64("project_id", p.ID),
		slog.Int("challenges", len(p.TechnicalChallenges)),
		slog.Int("models", p.ModelCount()),
		slog.Int("local_models", len(locals)-skipped))
	s.notifier.PublishChange(sse.ChangeLoaded, map[string]any{
		"projectId":  p.ID,
		"challenges": len(p.TechnicalChallenges),
		"models":     p.ModelCount(),
	})
	return p, nil
}

func (s *Service) saveSnapshot(ctx context.Context, p *models.Project) {
	body, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.db.SaveSnapshot(ctx, index.Snapshot{
		ProjectID: s.projectID,
		Checksum:  checksum.Sum(body),
		Body:      body,
	}); err != nil {
		s.logger.Warn("save snapshot failed", slog.String("error", err.Error()))
	}
}

func (s *Service) loadSnapshot(ctx context.Context) (*models.Project, error) {
	snap, err := s.db.LoadSnapshot(ctx, s.projectID)
	if err != nil {
		return nil, err
	}
	return parser.Parse(snap.Body, parser.FormatJSON)
}

// Overlay appends locals to their challenges in order. Models whose
// challenge no longer exists, or whose id is already in the tree, are
// skipped and counted.
func Overlay(p *models.Project, locals []models.LocalModel) (*models.Project, int) {
	skipped := 0
	ids := p.IDs()
	for _, l := range locals {
		if _, dup := ids[l.ID]; dup || p.Challenge(l.ChallengeID) == nil {
			skipped++
			continue
		}
		p = store.WithModel(p, l.ChallengeID, l.Model())
		ids[l.ID] = struct{}{}
	}
	return p, skipped
}

// Project returns the current tree or apperr.ErrNoProject.
func (s *Service) Project(_ context.Context) (*models.Project, error) {
	p := s.store.Current()
	if p == nil {
		return nil, apperr.ErrNoProject
	}
	return p, nil
}

// Loaded reports whether a project tree is available.
func (s *Service) Loaded() bool {
	return s.store.Current() != nil
}

// LoadedAt returns when the project was last loaded.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Diagram returns the diagram of the current tree. It is empty when no
// project is loaded.
func (s *Service) Diagram(_ context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// AddModel creates a model named name under challengeID, persists it and
// updates the tree.
func (s *Service) AddModel(ctx context.Context, challengeID int64, name string) (*models.LocalModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name exceeds %d bytes", apperr.ErrInvalidInput, maxNameLength)
	}

	cur := s.store.Current()
	if cur == nil {
		return nil, apperr.ErrNoProject
	}
	if cur.Challenge(challengeID) == nil {
		return nil, fmt.Errorf("challenge %d: %w", challengeID, apperr.ErrNotFound)
	}

	local := models.LocalModel{
		ID:          s.store.NextModelID(),
		ProjectID:   s.projectID,
		ChallengeID: challengeID,
		Name:        name,
		CreatedAt:   time.Now(),
	}
	if err := s.db.InsertModel(ctx, local); err != nil {
		return nil, err
	}
	if err := s.store.AppendModel(challengeID, local.Model()); err != nil {
		// The tree was reloaded between the check and the append; the row
		// stays and is overlaid again if the challenge comes back.
		return nil, err
	}

	s.logger.Info("model added",
		slog.Int64("challenge_id", challengeID),
		slog.Int64("model_id", local.ID))
	s.notifier.PublishChange(sse.ChangeModelAdded, local)
	return &local, nil
}

// LocalModels lists the models added through this service.
func (s *Service) LocalModels(ctx context.Context) ([]models.LocalModel, error) {
	locals, err := s.db.ModelsForProject(ctx, s.projectID)
	if err != nil {
		return nil, err
	}
	if locals == nil {
		locals = []models.LocalModel{}
	}
	return locals, nil
}

// DeleteLocalModel removes a locally added model. Upstream models cannot be
// deleted and yield apperr.ErrNotFound.
func (s *Service) DeleteLocalModel(ctx context.Context, modelID int64) error {
	if err := s.db.DeleteModel(ctx, modelID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("local model %d: %w", modelID, apperr.ErrNotFound)
		}
		return err
	}
	s.store.RemoveModel(modelID)

	s.logger.Info("model removed", slog.Int64("model_id", modelID))
	s.notifier.PublishChange(sse.ChangeModelRemoved, map[string]int64{"id": modelID})
	return nil
}
