// Package models defines the domain types for Asteria.
package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Project is the root of the tree rendered as a diagram.
type Project struct {
	ID                  int64                `json:"id" yaml:"id"`
	Name                string               `json:"name" yaml:"name"`
	TechnicalChallenges []TechnicalChallenge `json:"technicalChallenges" yaml:"technicalChallenges"`
}

// TechnicalChallenge groups the biological models that address it.
type TechnicalChallenge struct {
	ID               int64             `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	BiologicalModels []BiologicalModel `json:"biologicalModels" yaml:"biologicalModels"`
}

// BiologicalModel is a leaf of the project tree.
type BiologicalModel struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Validate checks the tree shape: ids are non-negative and unique across
// every tier. The layout relies on unique ids for node identity.
func (p *Project) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Min(int64(0))),
	); err != nil {
		return err
	}

	seen := map[int64]string{p.ID: "project"}
	claim := func(id int64, kind string) error {
		if id < 0 {
			return fmt.Errorf("%s id %d: must be no less than 0", kind, id)
		}
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%s id %d: already used by a %s", kind, id, prev)
		}
		seen[id] = kind
		return nil
	}

	for _, c := range p.TechnicalChallenges {
		if err := claim(c.ID, "challenge"); err != nil {
			return err
		}
		for _, m := range c.BiologicalModels {
			if err := claim(m.ID, "model"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Challenge returns the challenge with the given id, or nil.
func (p *Project) Challenge(id int64) *TechnicalChallenge {
	if p == nil {
		return nil
	}
	for i := range p.TechnicalChallenges {
		if p.TechnicalChallenges[i].ID == id {
			return &p.TechnicalChallenges[i]
		}
	}
	return nil
}

// IDs returns every entity id present in the tree.
func (p *Project) IDs() map[int64]struct{} {
	out := make(map[int64]struct{})
	if p == nil {
		return out
	}
	out[p.ID] = struct{}{}
	for _, c := range p.TechnicalChallenges {
		out[c.ID] = struct{}{}
		for _, m := range c.BiologicalModels {
			out[m.ID] = struct{}{}
		}
	}
	return out
}

// ModelCount returns the total number of biological models in the tree.
func (p *Project) ModelCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, c := range p.TechnicalChallenges {
		n += len(c.BiologicalModels)
	}
	return n
}
