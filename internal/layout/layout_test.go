package layout

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/starford/asteria/internal/models"
)

func testProject() *models.Project {
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

func mustNode(t *testing.T, d Diagram, id string) Node {
	t.Helper()
	n, ok := d.Node(id)
	if !ok {
		t.Fatalf("node %q not found", id)
	}
	return n
}

func TestCompute_NilProject(t *testing.T) {
	d := Compute(nil, DefaultOptions())
	if d.Nodes == nil || d.Edges == nil {
		t.Fatal("expected non-nil empty slices")
	}
	if len(d.Nodes) != 0 || len(d.Edges) != 0 {
		t.Errorf("got %d nodes, %d edges, want 0, 0", len(d.Nodes), len(d.Edges))
	}
}

func TestCompute_Counts(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())
	if len(d.Nodes) != 8 {
		t.Errorf("nodes = %d, want 8", len(d.Nodes))
	}
	if len(d.Edges) != 7 {
		t.Errorf("edges = %d, want 7", len(d.Edges))
	}
}

func TestCompute_Scenario(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())

	cases := []struct {
		id   string
		kind Kind
		x, y float64
	}{
		{"42", KindProject, 0, 0},
		{"101", KindChallenge, 500, 0},
		{"201", KindModel, 1000, 0},
		{"202", KindModel, 1000, 120},
		{"add-model-to-101", KindAddModel, 1000, 240},
		{"102", KindChallenge, 500, 360},
		{"203", KindModel, 1000, 360},
		{"add-model-to-102", KindAddModel, 1000, 480},
	}
	for _, tc := range cases {
		n := mustNode(t, d, tc.id)
		if n.Kind() != tc.kind {
			t.Errorf("%s: kind = %q, want %q", tc.id, n.Kind(), tc.kind)
		}
		if n.Position.X != tc.x || n.Position.Y != tc.y {
			t.Errorf("%s: position = (%v, %v), want (%v, %v)", tc.id, n.Position.X, n.Position.Y, tc.x, tc.y)
		}
	}
}

func TestCompute_NodeOrderIsTiered(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())
	var got []string
	for _, n := range d.Nodes {
		got = append(got, n.ID)
	}
	want := "42,101,102,201,202,203,add-model-to-101,add-model-to-102"
	if strings.Join(got, ",") != want {
		t.Errorf("order = %s, want %s", strings.Join(got, ","), want)
	}
}

func TestCompute_EdgesInTraversalOrder(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())
	want := []Edge{
		{ID: "project-42-challenge-101", Source: "42", Target: "101"},
		{ID: "challenge-101-model-201", Source: "101", Target: "201"},
		{ID: "challenge-101-model-202", Source: "101", Target: "202"},
		{ID: "challenge-101-add-model", Source: "101", Target: "add-model-to-101"},
		{ID: "project-42-challenge-102", Source: "42", Target: "102"},
		{ID: "challenge-102-model-203", Source: "102", Target: "203"},
		{ID: "challenge-102-add-model", Source: "102", Target: "add-model-to-102"},
	}
	if len(d.Edges) != len(want) {
		t.Fatalf("edges = %d, want %d", len(d.Edges), len(want))
	}
	for i, e := range d.Edges {
		if e.ID != want[i].ID || e.Source != want[i].Source || e.Target != want[i].Target {
			t.Errorf("edge[%d] = %+v, want %+v", i, e, want[i])
		}
		if !e.Animated {
			t.Errorf("edge %s not animated", e.ID)
		}
		if e.MarkerEnd == nil || e.MarkerEnd.Type != MarkerArrowClosed {
			t.Errorf("edge %s marker = %+v", e.ID, e.MarkerEnd)
		}
	}
}

func TestCompute_EdgesReferenceExistingNodes(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())
	for _, e := range d.Edges {
		if _, ok := d.Node(e.Source); !ok {
			t.Errorf("edge %s: missing source %s", e.ID, e.Source)
		}
		if _, ok := d.Node(e.Target); !ok {
			t.Errorf("edge %s: missing target %s", e.ID, e.Target)
		}
	}
}

func TestCompute_AffordanceData(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())
	adds := d.NodesOfKind(KindAddModel)
	if len(adds) != 2 {
		t.Fatalf("affordances = %d, want 2", len(adds))
	}
	for i, n := range adds {
		wantChallenge := testProject().TechnicalChallenges[i].ID
		data, ok := n.Data.(AddModelData)
		if !ok {
			t.Fatalf("%s: data is %T", n.ID, n.Data)
		}
		if data.ChallengeID != wantChallenge || data.ID != wantChallenge {
			t.Errorf("%s: challenge = %d, want %d", n.ID, data.ChallengeID, wantChallenge)
		}
		if n.TargetPosition != SideLeft {
			t.Errorf("%s: target position = %q", n.ID, n.TargetPosition)
		}
	}
}

func TestCompute_ChallengeWithoutModels(t *testing.T) {
	p := &models.Project{
		ID: 1,
		TechnicalChallenges: []models.TechnicalChallenge{
			{ID: 2, Name: "empty"},
			{ID: 3, Name: "next", BiologicalModels: []models.BiologicalModel{{ID: 4}}},
		},
	}
	d := Compute(p, DefaultOptions())
	if len(d.Nodes) != 1+2+1+2 {
		t.Fatalf("nodes = %d, want 6", len(d.Nodes))
	}
	if len(d.Edges) != 2+1+2 {
		t.Fatalf("edges = %d, want 5", len(d.Edges))
	}
	if y := mustNode(t, d, "add-model-to-2").Position.Y; y != 0 {
		t.Errorf("empty challenge affordance y = %v, want 0", y)
	}
	if y := mustNode(t, d, "3").Position.Y; y != 120 {
		t.Errorf("next challenge y = %v, want 120", y)
	}
	if y := mustNode(t, d, "add-model-to-3").Position.Y; y != 240 {
		t.Errorf("next affordance y = %v, want 240", y)
	}
}

func TestCompute_ProjectWithoutChallenges(t *testing.T) {
	d := Compute(&models.Project{ID: 7, Name: "solo"}, DefaultOptions())
	if len(d.Nodes) != 1 || len(d.Edges) != 0 {
		t.Fatalf("got %d nodes, %d edges, want 1, 0", len(d.Nodes), len(d.Edges))
	}
	if d.Edges == nil {
		t.Error("edges should be an empty slice, not nil")
	}
	if d.Nodes[0].Label() != "solo" {
		t.Errorf("label = %q", d.Nodes[0].Label())
	}
}

func TestCompute_ConsecutiveModelSpacing(t *testing.T) {
	p := &models.Project{ID: 1, TechnicalChallenges: []models.TechnicalChallenge{{ID: 2}}}
	for i := int64(0); i < 5; i++ {
		p.TechnicalChallenges[0].BiologicalModels = append(p.TechnicalChallenges[0].BiologicalModels,
			models.BiologicalModel{ID: 10 + i})
	}
	d := Compute(p, DefaultOptions())
	modelNodes := d.NodesOfKind(KindModel)
	for i := 1; i < len(modelNodes); i++ {
		if diff := modelNodes[i].Position.Y - modelNodes[i-1].Position.Y; diff != RowSpacing {
			t.Errorf("spacing between %s and %s = %v", modelNodes[i-1].ID, modelNodes[i].ID, diff)
		}
	}
	last := modelNodes[len(modelNodes)-1].Position.Y
	if y := mustNode(t, d, "add-model-to-2").Position.Y; y != last+RowSpacing {
		t.Errorf("affordance y = %v, want %v", y, last+RowSpacing)
	}
}

func TestCompute_CustomOptions(t *testing.T) {
	opts := Options{ProjectColumn: 10, ChallengeColumn: 20, ModelColumn: 30, RowSpacing: 5}
	d := Compute(testProject(), opts)
	if n := mustNode(t, d, "42"); n.Position.X != 10 {
		t.Errorf("project x = %v", n.Position.X)
	}
	if n := mustNode(t, d, "102"); n.Position.X != 20 || n.Position.Y != 15 {
		t.Errorf("challenge 102 = %+v", n.Position)
	}
	if n := mustNode(t, d, "add-model-to-102"); n.Position.X != 30 || n.Position.Y != 20 {
		t.Errorf("affordance 102 = %+v", n.Position)
	}
}

func TestCompute_ZeroOptionsUseDefaults(t *testing.T) {
	a := Compute(testProject(), Options{})
	b := Compute(testProject(), DefaultOptions())
	ca, _ := a.Checksum()
	cb, _ := b.Checksum()
	if ca != cb {
		t.Error("zero options should lay out like defaults")
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	p := testProject()
	before, _ := json.Marshal(p)
	_ = Compute(p, DefaultOptions())
	after, _ := json.Marshal(p)
	if string(before) != string(after) {
		t.Error("input project was modified")
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a, _ := Compute(testProject(), DefaultOptions()).Checksum()
	b, _ := Compute(testProject(), DefaultOptions()).Checksum()
	if a != b {
		t.Errorf("checksums differ: %s vs %s", a, b)
	}
}

func TestNodeJSONRoundTrip(t *testing.T) {
	d := Compute(testProject(), DefaultOptions())
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"type":"addBiologicalModel"`) {
		t.Errorf("missing affordance type in %s", b)
	}
	if !strings.Contains(string(b), `"challengeId":101`) {
		t.Errorf("missing challengeId in %s", b)
	}

	var back Diagram
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	n := mustNode(t, back, "add-model-to-102")
	if data, ok := n.Data.(AddModelData); !ok || data.ChallengeID != 102 {
		t.Errorf("decoded affordance data = %#v", n.Data)
	}
}

func TestNodeUnmarshal_UnknownType(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"id":"x","type":"mystery","data":{}}`), &n)
	if err == nil {
		t.Fatal("expected error for unknown node type")
	}
}
