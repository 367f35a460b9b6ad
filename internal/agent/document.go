package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/event"
	"github.com/HendryAvila/ensemble/internal/llm"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/prompts"
)

// Status lines emitted by the document stream.
const (
	StatusGenerating       = "Generating document..."
	StatusGenerated        = "Document generated"
	StatusGenerationFailed = "Failed to generate document. Please try again."
)

// DocumentService streams a generated document. Every model text fragment
// is re-typed as a document event for the canvas.
type DocumentService struct {
	model  llm.Streamer
	logger *logging.Logger
}

// NewDocumentService returns a DocumentService backed by model.
func NewDocumentService(model llm.Streamer, logger *logging.Logger) *DocumentService {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &DocumentService{model: model, logger: logger.WithComponent("document")}
}

// DocumentRequestFor builds the model request for req.
func DocumentRequestFor(req api.DocumentRequest) llm.Request {
	ask := req.Prompt
	if ask == "" && (req.Type != "" || req.Title != "") {
		ask = prompts.DocumentRequest(req.Type, req.Title)
	}
	return llm.Request{
		System: prompts.DocumentSystem(),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: prompts.DocumentPrompt(req.ProjectName, req.ConversationContext, ask),
		}},
	}
}

// Generate emits status, document*, status, complete. On failure it emits
// one failure status and returns the error without sending complete.
func (s *DocumentService) Generate(ctx context.Context, req api.DocumentRequest, sink Sink) error {
	if err := sink.Send(event.Status(StatusGenerating)); err != nil {
		return fmt.Errorf("sending event: %w", err)
	}

	err := s.relay(ctx, req, sink)
	if err == nil {
		if err := sink.Send(event.Status(StatusGenerated)); err != nil {
			return fmt.Errorf("sending event: %w", err)
		}
		return sink.Send(event.Complete())
	}

	s.logger.Error("document generation failed", "project", req.ProjectName, "error", err)
	if sendErr := sink.Send(event.Status(StatusGenerationFailed)); sendErr != nil {
		s.logger.Debug("could not report failure", "error", sendErr)
	}
	return err
}

func (s *DocumentService) relay(ctx context.Context, req api.DocumentRequest, sink Sink) error {
	stream, err := s.model.Stream(ctx, DocumentRequestFor(req))
	if err != nil {
		return fmt.Errorf("starting document stream: %w", err)
	}
	defer stream.Close()

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("document stream: %w", err)
		}
		if frag.Kind != llm.KindText || frag.Delta == "" {
			continue
		}
		if err := sink.Send(event.Document(frag.Delta)); err != nil {
			return fmt.Errorf("sending event: %w", err)
		}
	}
}
