package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"id":1}`)
	if err := s.Write("1.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("1.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("exports/42/diagram.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("exports/42/diagram.json"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("nope.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.yaml", []byte("id: 1"))
	if err := s.Delete("del.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists("del.yaml"); ok {
		t.Error("file still exists after Delete")
	}
	if err := s.Delete("del.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second Delete err = %v, want os.ErrNotExist", err)
	}
	if err := s.Delete(""); err == nil {
		t.Error("expected error deleting the root")
	}
}

func TestExists(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("exports/a.json", []byte("{}"))

	cases := map[string]bool{
		"exports/a.json": true,
		"exports/b.json": false,
		"exports":        false,
	}
	for path, want := range cases {
		got, err := s.Exists(path)
		if err != nil {
			t.Fatalf("Exists(%q): %v", path, err)
		}
		if got != want {
			t.Errorf("Exists(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestListOnlyProjectDocuments(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("sub/2.yml", []byte("id: 2"))
	_ = s.Write("1.json", []byte("{}"))
	_ = s.Write("README.md", []byte("# ignored"))
	_ = os.WriteFile(filepath.Join(s.Root(), tmpPrefix+"x.json"), []byte("{"), 0o644)

	docs, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(docs), docs)
	}
	if docs[0].Path != "1.json" || docs[1].Path != "sub/2.yml" {
		t.Errorf("paths = %q, %q", docs[0].Path, docs[1].Path)
	}
	if docs[0].Format != "json" || docs[1].Format != "yaml" {
		t.Errorf("formats = %q, %q", docs[0].Format, docs[1].Format)
	}
	if docs[1].Size != int64(len("id: 2")) || docs[1].Checksum == "" {
		t.Errorf("entry = %+v", docs[1])
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := tempRoot(t)
	docs, err := s.List("exports")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("len = %d, want 0", len(docs))
	}
}

func TestPathTraversalRejected(t *testing.T) {
	s := tempRoot(t)
	if _, err := s.Read("../../etc/passwd"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if err := s.Write("/abs.json", []byte("{}")); err == nil {
		t.Error("expected absolute path to be rejected")
	}
	if _, err := s.List("../"); err == nil {
		t.Error("expected list outside the root to be rejected")
	}
}
