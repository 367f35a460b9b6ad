package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/ensemble/internal/agent"
	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/docstore"
	"github.com/HendryAvila/ensemble/internal/event"
	"github.com/HendryAvila/ensemble/internal/llm"
	"github.com/HendryAvila/ensemble/internal/speech"
	"github.com/HendryAvila/ensemble/internal/tracker"
)

// --- Fakes ---

type stubDocs struct{ result docstore.Result }

func (s stubDocs) CreateDocument(context.Context, string, string, string) docstore.Result {
	return s.result
}

type stubTracker struct {
	mu        sync.Mutex
	completed []string
	ok        bool
}

func (*stubTracker) CreateList(_ context.Context, name string) tracker.List {
	return tracker.List{ID: "list", Name: name}
}

func (*stubTracker) CreateTask(_ context.Context, _, name, _ string) tracker.Task {
	return tracker.Task{ID: "cu-" + name, Name: name}
}

func (s *stubTracker) CompleteTask(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, id)
	return s.ok
}

type fixture struct {
	ts      *httptest.Server
	tracker *stubTracker
}

func newFixture(t *testing.T, model llm.Streamer, sp *speech.Client) *fixture {
	t.Helper()
	tr := &stubTracker{}
	a := NewAPI(
		agent.NewChatService(model, nil),
		agent.NewDocumentService(model, nil),
		agent.NewCompletionService(stubDocs{result: docstore.Result{DocID: "abc", DocURL: docstore.DocURL("abc")}}, tr, nil, nil, nil),
		sp,
		nil,
	)
	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, tracker: tr}
}

func (f *fixture) post(t *testing.T, route string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	resp, err := http.Post(f.ts.URL+route, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readEvents(t *testing.T, resp *http.Response) ([]event.Event, error) {
	t.Helper()
	r := event.NewReader(resp.Body)
	var out []event.Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// --- Streaming endpoints ---

func TestChatEndpoint_Streams(t *testing.T) {
	model := llm.NewScript([]llm.Fragment{
		llm.ToolFragment("setProject", map[string]any{"name": "TodoApp"}),
		llm.TextFragment("Hello"),
	})
	f := newFixture(t, model, nil)

	resp := f.post(t, api.RouteChat, api.ChatRequest{Prompt: "Build a todo app"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	events, err := readEvents(t, resp)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, event.TypeToolCall, events[0].Type)
	assert.Equal(t, "TodoApp", events[0].ToolCall.Args["name"])
	assert.Equal(t, event.Text("Hello"), events[1])
	assert.Equal(t, event.Complete(), events[2])
}

func TestChatEndpoint_BadRequests(t *testing.T) {
	f := newFixture(t, llm.NewScript(), nil)

	resp := f.post(t, api.RouteChat, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, api.RouteChat, api.ChatRequest{Prompt: " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	get, err := http.Get(f.ts.URL + api.RouteChat)
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestDocumentEndpoint(t *testing.T) {
	model := llm.NewScript([]llm.Fragment{llm.TextFragment("# PRD")})
	f := newFixture(t, model, nil)

	resp := f.post(t, api.RouteDocument, api.DocumentRequest{Prompt: `Generate a prd document titled "PRD"`, ProjectName: "A"})
	events, err := readEvents(t, resp)
	require.NoError(t, err)
	assert.Equal(t, []event.Event{
		event.Status(agent.StatusGenerating),
		event.Document("# PRD"),
		event.Status(agent.StatusGenerated),
		event.Complete(),
	}, events)
}

func TestDocumentEndpoint_StructuredRequest(t *testing.T) {
	model := llm.NewScript([]llm.Fragment{llm.TextFragment("# PRD")})
	f := newFixture(t, model, nil)

	resp := f.post(t, api.RouteDocument, api.DocumentRequest{ProjectName: "A", Type: "prd", Title: "A PRD"})
	_, err := readEvents(t, resp)
	require.NoError(t, err)

	reqs := model.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, `Generate a prd document titled "A PRD"`)
}

func TestDocumentEndpoint_FailureTruncates(t *testing.T) {
	f := newFixture(t, &llm.Script{Err: errors.New("model down")}, nil)

	resp := f.post(t, api.RouteDocument, api.DocumentRequest{Prompt: "p", ProjectName: "A"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events, err := readEvents(t, resp)
	assert.ErrorIs(t, err, event.ErrTruncated)
	require.Len(t, events, 2)
	assert.Equal(t, event.Status(agent.StatusGenerationFailed), events[1])
}

// --- JSON endpoints ---

func TestCompleteEndpoint(t *testing.T) {
	f := newFixture(t, llm.NewScript(), nil)

	resp := f.post(t, api.RouteComplete, api.CompleteRequest{Document: "# Doc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, api.RouteComplete, api.CompleteRequest{ProjectName: "TodoApp", Document: "# Doc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.CompleteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, docstore.DocURL("abc"), out.DocURL)
	assert.Len(t, out.Tasks, 3)
	assert.False(t, out.AuthRequired)
}

func TestTaskCompleteEndpoint_AlwaysSucceeds(t *testing.T) {
	f := newFixture(t, llm.NewScript(), nil)

	for _, body := range []api.TaskCompleteRequest{{ClickUpTaskID: "cu-1"}, {}} {
		resp := f.post(t, api.RouteTaskComplete, body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out api.SuccessResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.True(t, out.Success)
	}

	f.tracker.mu.Lock()
	defer f.tracker.mu.Unlock()
	assert.Equal(t, []string{"cu-1"}, f.tracker.completed, "a missing id makes no remote call")
}

func TestTTSEndpoint_Unconfigured(t *testing.T) {
	f := newFixture(t, llm.NewScript(), nil)
	resp := f.post(t, api.RouteTTS, api.TTSRequest{Text: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTTSEndpoint(t *testing.T) {
	var (
		mu      sync.Mutex
		gotText string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		gotText = body.Text
		mu.Unlock()
		if body.Text == "fail" {
			http.Error(w, "quota", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer upstream.Close()

	f := newFixture(t, llm.NewScript(), speech.New("key", "").WithBaseURL(upstream.URL))

	resp := f.post(t, api.RouteTTS, api.TTSRequest{Text: strings.Repeat("é", 600)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(audio))
	mu.Lock()
	assert.Equal(t, speech.MaxChars, utf8.RuneCountInString(gotText))
	mu.Unlock()

	resp = f.post(t, api.RouteTTS, api.TTSRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, api.RouteTTS, api.TTSRequest{Text: "fail"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, llm.NewScript(), nil)
	resp, err := http.Get(f.ts.URL + api.RouteHealth)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// --- Lifecycle ---

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	a := NewAPI(nil, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + api.RouteHealth)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
