package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/ensemble/internal/agent"
	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/event"
	"github.com/HendryAvila/ensemble/internal/logging"
	"github.com/HendryAvila/ensemble/internal/speech"
)

// maxBodyBytes caps JSON request bodies. Documents travel through
// /api/agent/complete, so the cap is generous.
const maxBodyBytes = 4 << 20

// shutdownTimeout bounds how long in-flight streams may run after a
// shutdown signal.
const shutdownTimeout = 10 * time.Second

// API serves the Ensemble HTTP endpoints.
type API struct {
	chat     *agent.ChatService
	document *agent.DocumentService
	complete *agent.CompletionService
	speech   *speech.Client
	logger   *logging.Logger
}

// NewAPI wires the services. sp may be nil, in which case /api/tts
// answers 503.
func NewAPI(chat *agent.ChatService, document *agent.DocumentService, complete *agent.CompletionService, sp *speech.Client, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &API{
		chat:     chat,
		document: document,
		complete: complete,
		speech:   sp,
		logger:   logger.WithComponent("http"),
	}
}

// Handler returns the routed endpoints.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.RouteChat, a.handleChat)
	mux.HandleFunc("POST "+api.RouteDocument, a.handleDocument)
	mux.HandleFunc("POST "+api.RouteComplete, a.handleComplete)
	mux.HandleFunc("POST "+api.RouteTaskComplete, a.handleTaskComplete)
	mux.HandleFunc("POST "+api.RouteTTS, a.handleTTS)
	mux.HandleFunc("GET "+api.RouteHealth, a.handleHealth)
	return mux
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (a *API) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *API) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// --- Streaming endpoints ---

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "prompt is required"})
		return
	}

	sink := startStream(w)
	if err := a.chat.Stream(r.Context(), req, sink); err != nil {
		a.logger.Warn("chat stream ended early", "error", err)
	}
}

func (a *API) handleDocument(w http.ResponseWriter, r *http.Request) {
	var req api.DocumentRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "prompt is required"})
		return
	}

	sink := startStream(w)
	if err := a.document.Generate(r.Context(), req, sink); err != nil {
		a.logger.Warn("document stream ended early", "project", req.ProjectName, "error", err)
	}
}

func startStream(w http.ResponseWriter) *event.Writer {
	event.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return event.NewWriter(w)
}

// --- JSON endpoints ---

func (a *API) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req api.CompleteRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.Validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, a.complete.Complete(r.Context(), req))
}

// handleTaskComplete always reports success once the body parses. Local
// state is authoritative; tracker failures are only logged.
func (a *API) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	var req api.TaskCompleteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ClickUpTaskID != "" {
		a.complete.CompleteRemote(r.Context(), req.ClickUpTaskID)
	}
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (a *API) handleTTS(w http.ResponseWriter, r *http.Request) {
	if !a.speech.Available() {
		writeJSON(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: "TTS not configured"})
		return
	}
	var req api.TTSRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "No text provided"})
		return
	}

	audio, err := a.speech.Synthesize(r.Context(), speech.Truncate(req.Text, speech.MaxChars))
	if errors.Is(err, speech.ErrEmptyText) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "No text provided"})
		return
	}
	if err != nil {
		a.logger.Error("speech synthesis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "TTS generation failed"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// --- Helpers ---

// decode reads a JSON body into v, answering 400 or 413 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "payload exceeds limit"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "unable to read body"})
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
