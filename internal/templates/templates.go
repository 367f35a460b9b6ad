// Package templates decides what gets created when a document is saved:
// the document title and the follow-up tasks.
//
// The set is read from a YAML file so teams can change the starting tasks
// without a rebuild. Titles and descriptions are text/template strings
// rendered with Data.
package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Data is what templates can reference.
type Data struct {
	ProjectName string
	DocURL      string
}

// Task is one templated follow-up task.
type Task struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
}

// Set is the parsed template file.
type Set struct {
	DocumentTitle   string `yaml:"document_title"`
	TaskDescription string `yaml:"task_description"`
	Tasks           []Task `yaml:"tasks"`
}

// Rendered is a task ready to be sent to the tracker.
type Rendered struct {
	Title       string
	Description string
}

// Source supplies the current template set.
type Source interface {
	Current() Set
}

// Current lets a fixed Set act as a Source.
func (s Set) Current() Set { return s }

// Default returns the built-in set.
func Default() Set {
	s, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("templates: invalid built-in defaults: %v", err))
	}
	return s
}

// Parse decodes a YAML template file. Missing fields fall back to the
// built-in defaults; an explicitly empty task list is allowed.
func Parse(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("parsing templates: %w", err)
	}
	var def Set
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		return Set{}, fmt.Errorf("parsing built-in templates: %w", err)
	}
	if s.DocumentTitle == "" {
		s.DocumentTitle = def.DocumentTitle
	}
	if s.TaskDescription == "" {
		s.TaskDescription = def.TaskDescription
	}
	if s.Tasks == nil && !hasKey(data, "tasks") {
		s.Tasks = def.Tasks
	}
	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

// LoadFile reads and parses path.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("reading templates: %w", err)
	}
	return Parse(data)
}

// Validate checks that every template string compiles and that no task
// title is blank.
func (s Set) Validate() error {
	var errs []error
	if _, err := compile("document_title", s.DocumentTitle); err != nil {
		errs = append(errs, err)
	}
	if _, err := compile("task_description", s.TaskDescription); err != nil {
		errs = append(errs, err)
	}
	for i, t := range s.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: title is required", i))
			continue
		}
		if _, err := compile(fmt.Sprintf("tasks[%d].title", i), t.Title); err != nil {
			errs = append(errs, err)
		}
		if t.Description != "" {
			if _, err := compile(fmt.Sprintf("tasks[%d].description", i), t.Description); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Title renders the document title.
func (s Set) Title(d Data) (string, error) {
	return render("document_title", s.DocumentTitle, d)
}

// Render expands every task. A task without its own description uses the
// shared task_description.
func (s Set) Render(d Data) ([]Rendered, error) {
	out := make([]Rendered, 0, len(s.Tasks))
	for i, t := range s.Tasks {
		title, err := render(fmt.Sprintf("tasks[%d].title", i), t.Title, d)
		if err != nil {
			return nil, err
		}
		descTmpl := t.Description
		if descTmpl == "" {
			descTmpl = s.TaskDescription
		}
		desc, err := render(fmt.Sprintf("tasks[%d].description", i), descTmpl, d)
		if err != nil {
			return nil, err
		}
		out = append(out, Rendered{Title: title, Description: desc})
	}
	return out, nil
}

func compile(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func render(name, text string, d Data) (string, error) {
	t, err := compile(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// hasKey reports whether the top-level YAML mapping declares key.
func hasKey(data []byte, key string) bool {
	var m map[string]yaml.Node
	if err := yaml.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
