// Package parser decodes project documents (remote JSON payloads and local
// JSON/YAML files) into validated project trees.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/asteria/internal/models"
)

// Format is the encoding of a project document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	// ErrNotJSON is returned when a JSON payload does not start with an
	// object. The upstream API answers some ids with plain text.
	ErrNotJSON = errors.New("project is not a valid JSON")
	// ErrInvalidProject wraps decoding and validation failures.
	ErrInvalidProject = errors.New("invalid project")
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Parse decodes data as a project in the given format and validates it.
func Parse(data []byte, format Format) (*models.Project, error) {
	p, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	return p, nil
}

// Decode decodes data without validating the tree.
func Decode(data []byte, format Format) (*models.Project, error) {
	var p models.Project
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if !bytes.HasPrefix(trimmed, []byte("{")) {
			return nil, ErrNotJSON
		}
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProject, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProject, err)
		}
	default:
		return nil, fmt.Errorf("parser: unsupported format %q", format)
	}
	normalize(&p)
	return &p, nil
}

// normalize replaces absent sequences with empty ones so encoded trees
// always carry arrays.
func normalize(p *models.Project) {
	if p.TechnicalChallenges == nil {
		p.TechnicalChallenges = []models.TechnicalChallenge{}
	}
	for i := range p.TechnicalChallenges {
		if p.TechnicalChallenges[i].BiologicalModels == nil {
			p.TechnicalChallenges[i].BiologicalModels = []models.BiologicalModel{}
		}
	}
}
