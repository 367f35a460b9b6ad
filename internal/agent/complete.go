package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/docstore"
	"github.com/HendryAvila/ensemble/internal/journal"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/project"
	"github.com/HendryAvila/ensemble/internal/templates"
	"github.com/HendryAvila/ensemble/internal/tracker"
)

// maxConcurrentTasks bounds parallel task creation against the tracker.
const maxConcurrentTasks = 4

// DocumentStore saves documents. *docstore.Store implements it.
type DocumentStore interface {
	CreateDocument(ctx context.Context, title, content, email string) docstore.Result
}

// Tracker creates and completes tasks. *tracker.Client implements it.
type Tracker interface {
	CreateList(ctx context.Context, name string) tracker.List
	CreateTask(ctx context.Context, listID, name, description string) tracker.Task
	CompleteTask(ctx context.Context, taskID string) bool
}

// TaskReader is implemented by trackers that can read a task back.
// *tracker.Client implements it.
type TaskReader interface {
	GetTask(ctx context.Context, taskID string) (tracker.Task, bool)
}

// CompletionService saves a finished document and creates its follow-up
// tasks. Collaborator failures degrade the response; they are never
// returned as errors.
type CompletionService struct {
	docs      DocumentStore
	tracker   Tracker
	templates templates.Source
	journal   *journal.Journal
	logger    *logging.Logger
}

// NewCompletionService wires the collaborators. tmpl may be nil for the
// built-in templates; j may be nil to skip journaling.
func NewCompletionService(docs DocumentStore, tr Tracker, tmpl templates.Source, j *journal.Journal, logger *logging.Logger) *CompletionService {
	if tmpl == nil {
		tmpl = templates.Default()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &CompletionService{
		docs:      docs,
		tracker:   tr,
		templates: tmpl,
		journal:   j,
		logger:    logger.WithComponent("complete"),
	}
}

// Complete saves req.Document and creates the templated tasks.
//
// When the document store needs authorization, the tracker is not touched
// and the response carries no tasks.
func (s *CompletionService) Complete(ctx context.Context, req api.CompleteRequest) api.CompleteResponse {
	set := s.templates.Current()

	title, err := set.Title(templates.Data{ProjectName: req.ProjectName})
	if err != nil {
		s.logger.Warn("document title template failed, using default", "error", err)
		set = templates.Default()
		title, _ = set.Title(templates.Data{ProjectName: req.ProjectName})
	}

	doc := s.docs.CreateDocument(ctx, title, req.Document, req.Email)
	if doc.AuthRequired {
		s.record(ctx, journal.Entry{Kind: journal.KindAuth, Project: req.ProjectName, Summary: "authorization required to save " + title, Detail: doc.AuthURL})
		return api.CompleteResponse{
			Tasks:        []project.Task{},
			DocURL:       docstore.NoURL,
			AuthRequired: true,
			AuthURL:      doc.AuthURL,
		}
	}
	if doc.Saved() {
		s.record(ctx, journal.Entry{Kind: journal.KindDocument, Project: req.ProjectName, Summary: "saved " + title, Detail: doc.DocURL})
	} else {
		s.record(ctx, journal.Entry{Kind: journal.KindError, Project: req.ProjectName, Summary: "document not saved: " + title, Detail: doc.DocID})
	}

	tasks := s.createTasks(ctx, set, req.ProjectName, doc.DocURL)
	return api.CompleteResponse{Tasks: tasks, DocURL: doc.DocURL}
}

// createTasks creates every templated task concurrently, preserving
// template order. A task the tracker could not create is kept locally
// without an external ID.
func (s *CompletionService) createTasks(ctx context.Context, set templates.Set, projectName, docURL string) []project.Task {
	rendered, err := set.Render(templates.Data{ProjectName: projectName, DocURL: docURL})
	if err != nil {
		s.logger.Warn("task templates failed, using defaults", "error", err)
		rendered, _ = templates.Default().Render(templates.Data{ProjectName: projectName, DocURL: docURL})
	}

	list := s.tracker.CreateList(ctx, projectName)
	out := make([]project.Task, len(rendered))

	var g errgroup.Group
	g.SetLimit(maxConcurrentTasks)
	for i, r := range rendered {
		g.Go(func() error {
			created := s.tracker.CreateTask(ctx, list.ID, r.Title, r.Description)
			externalID := ""
			if created.Created() {
				externalID = created.ID
			}
			out[i] = project.NewTask(r.Title, externalID)
			return nil
		})
	}
	_ = g.Wait()

	tracked := 0
	for _, t := range out {
		if t.ExternalID != "" {
			tracked++
		}
	}
	s.logger.Info("tasks created", "project", projectName, "tasks", len(out), "tracked", tracked)
	s.record(ctx, journal.Entry{
		Kind:    journal.KindTasks,
		Project: projectName,
		Summary: fmt.Sprintf("created %d tasks (%d tracked)", len(out), tracked),
		Detail:  list.ID,
	})
	return out
}

// CompleteRemote marks a tracker task complete. An empty ID is a no-op.
// The result is only reported, never retried.
func (s *CompletionService) CompleteRemote(ctx context.Context, externalID string) bool {
	if externalID == "" {
		return false
	}
	ok := s.tracker.CompleteTask(ctx, externalID)
	if !ok {
		s.logger.Warn("failed to mark tracker task complete", "task_id", externalID)
	}
	summary := "completed tracker task " + externalID
	if !ok {
		summary = "could not complete tracker task " + externalID
	}
	s.record(ctx, journal.Entry{Kind: journal.KindTaskComplete, Summary: summary, Detail: externalID})
	return ok
}

// RemoteStatus returns the tracker's status for a task. ok is false when
// the tracker cannot read tasks back or the lookup failed.
func (s *CompletionService) RemoteStatus(ctx context.Context, externalID string) (string, bool) {
	r, ok := s.tracker.(TaskReader)
	if !ok || externalID == "" {
		return "", false
	}
	task, ok := r.GetTask(ctx, externalID)
	if !ok || task.Status.Status == "" {
		return "", false
	}
	return task.Status.Status, true
}

func (s *CompletionService) record(ctx context.Context, e journal.Entry) {
	if _, err := s.journal.Record(ctx, e); err != nil {
		s.logger.Warn("journal write failed", "error", err)
	}
}
