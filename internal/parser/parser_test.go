package parser

import (
	"errors"
	"testing"
)

func TestParse_JSON(t *testing.T) {
	input := []byte(`{"id":1,"name":"Photosynthesis","technicalChallenges":[
		{"id":2,"name":"Light","biologicalModels":[{"id":3,"name":"Chlorophyll"}]}]}`)
	p, err := Parse(input, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Photosynthesis" || len(p.TechnicalChallenges) != 1 {
		t.Fatalf("project = %+v", p)
	}
	if got := p.TechnicalChallenges[0].BiologicalModels[0].Name; got != "Chlorophyll" {
		t.Errorf("model name = %q", got)
	}
}

func TestParse_PlainTextRejected(t *testing.T) {
	_, err := Parse([]byte("Hello, world!"), FormatJSON)
	if !errors.Is(err, ErrNotJSON) {
		t.Fatalf("err = %v, want ErrNotJSON", err)
	}
}

func TestParse_LeadingWhitespaceAccepted(t *testing.T) {
	if _, err := Parse([]byte("\n  {\"id\":1}"), FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"id":`), FormatJSON)
	if !errors.Is(err, ErrInvalidProject) {
		t.Fatalf("err = %v, want ErrInvalidProject", err)
	}
}

func TestParse_DuplicateIDsRejected(t *testing.T) {
	input := []byte(`{"id":1,"technicalChallenges":[{"id":2,"biologicalModels":[{"id":2}]}]}`)
	_, err := Parse(input, FormatJSON)
	if !errors.Is(err, ErrInvalidProject) {
		t.Fatalf("err = %v, want ErrInvalidProject", err)
	}
}

func TestDecode_MissingSequencesBecomeEmpty(t *testing.T) {
	p, err := Decode([]byte(`{"id":1,"technicalChallenges":[{"id":2}]}`), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "" {
		t.Errorf("name = %q, want empty", p.Name)
	}
	if p.TechnicalChallenges[0].BiologicalModels == nil {
		t.Error("models should be an empty slice")
	}

	p, err = Decode([]byte(`{"id":1}`), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TechnicalChallenges == nil {
		t.Error("challenges should be an empty slice")
	}
}

func TestParse_YAML(t *testing.T) {
	input := []byte(`id: 5
name: Local
technicalChallenges:
  - id: 6
    name: Water
    biologicalModels:
      - id: 7
        name: Mangrove
`)
	p, err := Parse(input, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 5 || p.TechnicalChallenges[0].BiologicalModels[0].ID != 7 {
		t.Errorf("project = %+v", p)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{"1.json": FormatJSON, "1.YAML": FormatYAML, "x/1.yml": FormatYAML}
	for path, want := range cases {
		got, ok := FormatFromPath(path)
		if !ok || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v", path, got, ok)
		}
	}
	if _, ok := FormatFromPath("1.txt"); ok {
		t.Error("txt should not be recognised")
	}
}
