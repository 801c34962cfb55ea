package layout

import (
	"encoding/json"
	"fmt"

	"github.com/starford/asteria/internal/checksum"
)

// Kind identifies which tier of the tree a node was derived from.
type Kind string

// Node kinds, named after the renderer's custom node types.
const (
	KindProject   Kind = "project"
	KindChallenge Kind = "technicalChallenge"
	KindModel     Kind = "biologicalModel"
	KindAddModel  Kind = "addBiologicalModel"
)

// Side is a handle placement hint for the renderer.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// MarkerArrowClosed is the only edge terminal marker the diagram uses.
const MarkerArrowClosed = "arrowclosed"

// Position is an absolute 2D coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the kind-specific payload of a node. The set of
// implementations is closed: ProjectData, ChallengeData, ModelData and
// AddModelData.
type NodeData interface {
	Kind() Kind
	sealed()
}

// ProjectData is the payload of the project node.
type ProjectData struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// ChallengeData is the payload of a technical challenge node.
type ChallengeData struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// ModelData is the payload of a biological model node.
type ModelData struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// AddModelData is the payload of the "add model" affordance attached to a
// challenge. ID mirrors ChallengeID.
type AddModelData struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	ChallengeID int64  `json:"challengeId"`
}

func (ProjectData) Kind() Kind   { return KindProject }
func (ChallengeData) Kind() Kind { return KindChallenge }
func (ModelData) Kind() Kind     { return KindModel }
func (AddModelData) Kind() Kind  { return KindAddModel }

func (ProjectData) sealed()   {}
func (ChallengeData) sealed() {}
func (ModelData) sealed()     {}
func (AddModelData) sealed()  {}

// Node is a positioned diagram node.
type Node struct {
	ID             string
	Data           NodeData
	Position       Position
	SourcePosition Side
	TargetPosition Side
	Draggable      bool
}

// Kind returns the kind of the node's payload.
func (n Node) Kind() Kind {
	if n.Data == nil {
		return ""
	}
	return n.Data.Kind()
}

// Label returns the display label of the node.
func (n Node) Label() string {
	switch d := n.Data.(type) {
	case ProjectData:
		return d.Label
	case ChallengeData:
		return d.Label
	case ModelData:
		return d.Label
	case AddModelData:
		return d.Label
	}
	return ""
}

type nodeJSON struct {
	ID             string          `json:"id"`
	Type           Kind            `json:"type"`
	Data           json.RawMessage `json:"data"`
	Position       Position        `json:"position"`
	SourcePosition Side            `json:"sourcePosition,omitempty"`
	TargetPosition Side            `json:"targetPosition,omitempty"`
	Draggable      bool            `json:"draggable"`
}

// MarshalJSON encodes the node in the renderer's node schema, with the
// payload kind as "type".
func (n Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeJSON{
		ID:             n.ID,
		Type:           n.Kind(),
		Data:           data,
		Position:       n.Position,
		SourcePosition: n.SourcePosition,
		TargetPosition: n.TargetPosition,
		Draggable:      n.Draggable,
	})
}

// UnmarshalJSON decodes a node, selecting the payload type from "type".
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var data NodeData
	switch raw.Type {
	case KindProject:
		var d ProjectData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	case KindChallenge:
		var d ChallengeData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	case KindModel:
		var d ModelData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	case KindAddModel:
		var d AddModelData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	default:
		return fmt.Errorf("layout: unknown node type %q", raw.Type)
	}
	*n = Node{
		ID:             raw.ID,
		Data:           data,
		Position:       raw.Position,
		SourcePosition: raw.SourcePosition,
		TargetPosition: raw.TargetPosition,
		Draggable:      raw.Draggable,
	}
	return nil
}

// Marker describes an edge end decoration.
type Marker struct {
	Type string `json:"type"`
}

// Edge is a directed diagram edge between two node ids.
type Edge struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Animated  bool    `json:"animated"`
	MarkerEnd *Marker `json:"markerEnd,omitempty"`
}

// Diagram is one full snapshot of the laid-out project.
type Diagram struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the node with the given id.
func (d Diagram) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodesOfKind returns the nodes of one kind in output order.
func (d Diagram) NodesOfKind(k Kind) []Node {
	var out []Node
	for _, n := range d.Nodes {
		if n.Kind() == k {
			out = append(out, n)
		}
	}
	return out
}

// Checksum returns a content hash of the encoded diagram.
func (d Diagram) Checksum() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("layout: encode diagram: %w", err)
	}
	return checksum.Sum(b), nil
}
