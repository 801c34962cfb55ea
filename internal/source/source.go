// Package source fetches project trees from the upstream API or from local
// project documents.
package source

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/models"
	"github.com/starford/asteria/internal/parser"
	"github.com/starford/asteria/internal/storage"
)

// Source loads a project tree by id.
type Source interface {
	Fetch(ctx context.Context, projectID int64) (*models.Project, error)
}

// maxBody caps upstream payloads.
const maxBody = 10 << 20

// HTTPSource fetches projects from "<endpoint>/<projectID>".
type HTTPSource struct {
	endpoint string
	client   *http.Client
	sanitize Sanitizer
}

// NewHTTP creates an HTTP source. A nil client uses one with the given timeout.
func NewHTTP(endpoint string, client *http.Client, timeout time.Duration, san Sanitizer) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
		sanitize: san,
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, projectID int64) (*models.Project, error) {
	url := s.endpoint + "/" + strconv.FormatInt(projectID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("fetching project", slog.String("url", url))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch project: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: failed to fetch project: status %d", apperr.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrUpstream, err)
	}
	return decode(body, parser.FormatJSON, s.sanitize)
}

// FileSource reads projects from "<id>.json", "<id>.yaml" or "<id>.yml"
// under a storage root.
type FileSource struct {
	store    storage.Provider
	sanitize Sanitizer
}

// NewFile creates a file source over store.
func NewFile(store storage.Provider, san Sanitizer) *FileSource {
	return &FileSource{store: store, sanitize: san}
}

// DocumentNames returns the candidate file names for a project id, in
// lookup order.
func DocumentNames(projectID int64) []string {
	id := strconv.FormatInt(projectID, 10)
	return []string{id + ".json", id + ".yaml", id + ".yml"}
}

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context, projectID int64) (*models.Project, error) {
	for _, name := range DocumentNames(projectID) {
		data, err := s.store.Read(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		format, _ := parser.FormatFromPath(name)
		return decode(data, format, s.sanitize)
	}
	return nil, fmt.Errorf("source: project %d: %w", projectID, apperr.ErrNotFound)
}

func decode(data []byte, format parser.Format, san Sanitizer) (*models.Project, error) {
	if !san.Enabled {
		return parser.Parse(data, format)
	}
	p, err := parser.Decode(data, format)
	if err != nil {
		return nil, err
	}
	p = san.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrInvalidProject, err)
	}
	return p, nil
}

// maxSanitizedID bounds remapped ids.
const maxSanitizedID = 1_000_000

// Sanitizer remaps every entity id to a distinct pseudo-random id. The id an
// entity gets depends only on Seed and its position by original ids in the
// tree, so repeated fetches of the same document agree and locally added
// models still find their challenge. The zero value leaves ids untouched.
type Sanitizer struct {
	Enabled bool
	Seed    uint64
}

// Apply returns a remapped copy of p. p is not modified.
func (s Sanitizer) Apply(p *models.Project) *models.Project {
	used := make(map[int64]struct{})
	next := func(key string) int64 {
		h := fnv.New64a()
		_, _ = h.Write([]byte(key))
		rnd := rand.New(rand.NewPCG(s.Seed, h.Sum64()))
		for {
			id := rnd.Int64N(maxSanitizedID)
			if _, dup := used[id]; !dup {
				used[id] = struct{}{}
				return id
			}
		}
	}

	out := &models.Project{
		ID:                  next(fmt.Sprintf("p/%d", p.ID)),
		Name:                p.Name,
		TechnicalChallenges: make([]models.TechnicalChallenge, len(p.TechnicalChallenges)),
	}
	seenChallenge := make(map[int64]int)
	for i, c := range p.TechnicalChallenges {
		ckey := fmt.Sprintf("c/%d/%d", c.ID, seenChallenge[c.ID])
		seenChallenge[c.ID]++
		nc := models.TechnicalChallenge{
			ID:               next(ckey),
			Name:             c.Name,
			BiologicalModels: make([]models.BiologicalModel, len(c.BiologicalModels)),
		}
		seenModel := make(map[int64]int)
		for j, m := range c.BiologicalModels {
			mkey := fmt.Sprintf("%s/m/%d/%d", ckey, m.ID, seenModel[m.ID])
			seenModel[m.ID]++
			nc.BiologicalModels[j] = models.BiologicalModel{ID: next(mkey), Name: m.Name}
		}
		out.TechnicalChallenges[i] = nc
	}
	return out
}
