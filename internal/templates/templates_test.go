package templates

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// --- Default ---

func TestDefault_OriginalTasks(t *testing.T) {
	s := Default()

	want := []string{"Write system design", "Finalize project proposal", "Set up dataset spreadsheet"}
	if len(s.Tasks) != len(want) {
		t.Fatalf("len(Tasks) = %d, want %d", len(s.Tasks), len(want))
	}
	for i, w := range want {
		if s.Tasks[i].Title != w {
			t.Errorf("Tasks[%d] = %q, want %q", i, s.Tasks[i].Title, w)
		}
	}
}

func TestDefault_Title(t *testing.T) {
	title, err := Default().Title(Data{ProjectName: "TodoApp"})
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "TodoApp – Project Overview" {
		t.Errorf("Title = %q", title)
	}
}

// --- Render ---

func TestRender_SharedAndOwnDescriptions(t *testing.T) {
	s, err := Parse([]byte(`
tasks:
  - title: "Review {{.ProjectName}} doc"
  - title: Kickoff
    description: "Meet about {{.ProjectName}}"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := s.Render(Data{ProjectName: "Atlas", DocURL: "https://docs.google.com/document/d/abc"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "Review Atlas doc" {
		t.Errorf("title = %q", got[0].Title)
	}
	if got[0].Description != "Related document: https://docs.google.com/document/d/abc" {
		t.Errorf("shared description = %q", got[0].Description)
	}
	if got[1].Description != "Meet about Atlas" {
		t.Errorf("own description = %q", got[1].Description)
	}
}

// --- Parse ---

func TestParse_EmptyTaskListIsAllowed(t *testing.T) {
	s, err := Parse([]byte("tasks: []\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(s.Tasks))
	}
	if s.DocumentTitle == "" {
		t.Error("document title should fall back to the default")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"not yaml", "tasks: [", "parsing templates"},
		{"blank title", "tasks:\n  - title: ' '\n", "title is required"},
		{"bad template", "document_title: '{{.ProjectName'\n", "document_title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRender_UnknownFieldFails(t *testing.T) {
	s := Set{DocumentTitle: "{{.Owner}}", TaskDescription: "x"}
	if _, err := s.Title(Data{}); err == nil {
		t.Error("expected error for unknown field")
	}
}

// --- Watcher ---

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("tasks:\n  - title: First\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if got := w.Current().Tasks[0].Title; got != "First" {
		t.Fatalf("initial title = %q", got)
	}

	if err := os.WriteFile(path, []byte("tasks:\n  - title: Second\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if got := w.Current().Tasks[0].Title; got != "Second" {
		t.Errorf("reloaded title = %q, want Second", got)
	}
}

func TestWatcher_KeepsPreviousOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("tasks:\n  - title: Keep\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("tasks: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()

	if got := w.Current().Tasks[0].Title; got != "Keep" {
		t.Errorf("title = %q, want Keep", got)
	}
}

func TestNewWatcher_MissingFile(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
