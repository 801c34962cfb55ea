// Package layout converts a project tree into a positioned node/edge diagram.
//
// The diagram has three fixed columns (project, challenges, models) and
// aligns each challenge with its first model. Every challenge also gets an
// "add model" affordance node one row below its last model.
package layout

import (
	"strconv"

	"github.com/starford/asteria/internal/models"
)

// Default layout constants.
const (
	ProjectColumn   = 0
	ChallengeColumn = 500
	ModelColumn     = 1000
	RowSpacing      = 120
)

// AddModelLabel is the label carried by affordance nodes.
const AddModelLabel = "Add biological model"

// Options holds the column and row tuning of the layout.
type Options struct {
	ProjectColumn   float64 `yaml:"project_column" json:"projectColumn"`
	ChallengeColumn float64 `yaml:"challenge_column" json:"challengeColumn"`
	ModelColumn     float64 `yaml:"model_column" json:"modelColumn"`
	RowSpacing      float64 `yaml:"row_spacing" json:"rowSpacing"`
}

// DefaultOptions returns the stock layout constants.
func DefaultOptions() Options {
	return Options{
		ProjectColumn:   ProjectColumn,
		ChallengeColumn: ChallengeColumn,
		ModelColumn:     ModelColumn,
		RowSpacing:      RowSpacing,
	}
}

// normalized fills a zero Options value with defaults. A non-positive row
// spacing would stack nodes on top of each other, so it falls back too.
func (o Options) normalized() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	if o.RowSpacing <= 0 {
		o.RowSpacing = RowSpacing
	}
	return o
}

// AddModelNodeID returns the id of the affordance node for a challenge.
func AddModelNodeID(challengeID int64) string {
	return "add-model-to-" + strconv.FormatInt(challengeID, 10)
}

// Compute lays out p. A nil project yields an empty diagram. The input is
// not validated nor modified; the result depends only on p and opts.
func Compute(p *models.Project, opts Options) Diagram {
	if p == nil {
		return Diagram{Nodes: []Node{}, Edges: []Edge{}}
	}
	opts = opts.normalized()

	projectID := nodeID(p.ID)

	var (
		challenges []Node
		modelNodes []Node
		addNodes   []Node
		edges      []Edge
		currentY   float64
	)

	for _, c := range p.TechnicalChallenges {
		challengeID := nodeID(c.ID)

		challenges = append(challenges, Node{
			ID:             challengeID,
			Data:           ChallengeData{ID: c.ID, Label: c.Name},
			Position:       Position{X: opts.ChallengeColumn, Y: currentY},
			SourcePosition: SideRight,
			TargetPosition: SideLeft,
			Draggable:      true,
		})
		edges = append(edges, newEdge(
			"project-"+projectID+"-challenge-"+challengeID, projectID, challengeID))

		modelY := currentY
		for _, m := range c.BiologicalModels {
			modelID := nodeID(m.ID)
			modelNodes = append(modelNodes, Node{
				ID:             modelID,
				Data:           ModelData{ID: m.ID, Label: m.Name},
				Position:       Position{X: opts.ModelColumn, Y: modelY},
				TargetPosition: SideLeft,
				Draggable:      true,
			})
			edges = append(edges, newEdge(
				"challenge-"+challengeID+"-model-"+modelID, challengeID, modelID))
			modelY += opts.RowSpacing
		}

		addID := AddModelNodeID(c.ID)
		addNodes = append(addNodes, Node{
			ID:             addID,
			Data:           AddModelData{ID: c.ID, Label: AddModelLabel, ChallengeID: c.ID},
			Position:       Position{X: opts.ModelColumn, Y: modelY},
			TargetPosition: SideLeft,
			Draggable:      true,
		})
		edges = append(edges, newEdge("challenge-"+challengeID+"-add-model", challengeID, addID))

		// +1 row for the affordance.
		currentY += max(opts.RowSpacing, float64(len(c.BiologicalModels)+1)*opts.RowSpacing)
	}

	nodes := make([]Node, 0, 1+len(challenges)+len(modelNodes)+len(addNodes))
	nodes = append(nodes, Node{
		ID:             projectID,
		Data:           ProjectData{ID: p.ID, Label: p.Name},
		Position:       Position{X: opts.ProjectColumn, Y: 0},
		SourcePosition: SideRight,
		Draggable:      true,
	})
	nodes = append(nodes, challenges...)
	nodes = append(nodes, modelNodes...)
	nodes = append(nodes, addNodes...)

	if edges == nil {
		edges = []Edge{}
	}
	return Diagram{Nodes: nodes, Edges: edges}
}

func nodeID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func newEdge(id, source, target string) Edge {
	return Edge{
		ID:        id,
		Source:    source,
		Target:    target,
		Animated:  true,
		MarkerEnd: &Marker{Type: MarkerArrowClosed},
	}
}
