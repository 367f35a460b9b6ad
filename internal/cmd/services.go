package cmd

import (
	"context"
	"errors"

	"github.com/HendryAvila/ensemble/internal/agent"
	"github.com/HendryAvila/ensemble/internal/config"
	"github.com/HendryAvila/ensemble/internal/docstore"
	"github.com/HendryAvila/ensemble/internal/journal"
	"github.com/HendryAvila/ensemble/internal/llm"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/speech"
	"github.com/HendryAvila/ensemble/internal/templates"
	"github.com/HendryAvila/ensemble/internal/tracker"
)

// services are the collaborators shared by serve and mcp.
type services struct {
	local   *agent.Local
	speech  *speech.Client
	journal *journal.Journal

	closers []func() error
}

// buildServices wires the model, document store, tracker, templates and
// journal from cfg. Goroutines it starts stop with ctx.
func buildServices(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*services, error) {
	s := &services{}

	model := llm.NewOpenAI(cfg.LLM.APIKey)
	model.BaseURL = cfg.LLM.BaseURL
	model.Model = cfg.LLM.Model
	if cfg.LLM.APIKey == "" {
		logger.Warn("no model API key configured, chat requests will fail")
	}

	conn := docstore.NewConn(docstore.DialHTTP(cfg.Docs.MCPURL))
	s.closers = append(s.closers, conn.Close)
	docs := docstore.New(conn, cfg.Docs.Retry(), logger)

	tr := tracker.New(cfg.Tracker.APIKey, cfg.Tracker.ListID, logger, tracker.WithBaseURL(cfg.Tracker.BaseURL))

	tmpl, err := loadTemplates(ctx, cfg.Templates, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if c, ok := tmpl.(interface{ Close() error }); ok {
		s.closers = append(s.closers, c.Close)
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.journal = j
	s.closers = append(s.closers, j.Close)

	s.speech = speech.New(cfg.Speech.APIKey, cfg.Speech.VoiceID).WithBaseURL(cfg.Speech.BaseURL)
	s.local = &agent.Local{
		Chat:     agent.NewChatService(model, logger),
		Document: agent.NewDocumentService(model, logger),
		Complete: agent.NewCompletionService(docs, tr, tmpl, j, logger),
	}
	return s, nil
}

// loadTemplates returns the built-in set, a file, or a watched file.
func loadTemplates(ctx context.Context, cfg config.TemplatesConfig, logger *logging.Logger) (templates.Source, error) {
	if cfg.Path == "" {
		return templates.Default(), nil
	}
	if !cfg.Watch {
		return templates.LoadFile(cfg.Path)
	}
	w, err := templates.NewWatcher(cfg.Path, logger)
	if err != nil {
		return nil, err
	}
	go w.Run(ctx)
	return w, nil
}

// Close releases everything in reverse order of creation.
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
