// Package docstore saves generated documents to Google Docs through a
// Google Workspace MCP server.
//
// Failures never surface as errors. CreateDocument always returns a
// Result; degraded outcomes are expressed with sentinel values that the
// caller checks: DocID FailedID with DocURL NoURL, or AuthRequired with a
// link the user must open.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/ensemble/internal/logging"
)

// Sentinels carried in Result.
const (
	FailedID       = "failed"
	AuthRequiredID = "auth_required"
	UnknownID      = "unknown"
	NoURL          = "#"
)

// CreateDocTool is the Workspace MCP tool that creates a Google Doc.
const CreateDocTool = "create_doc"

// DocURL returns the browser URL of a Google Doc.
func DocURL(id string) string {
	return "https://docs.google.com/document/d/" + id
}

// Result is the outcome of CreateDocument.
type Result struct {
	DocID        string `json:"docId"`
	DocURL       string `json:"docUrl"`
	AuthRequired bool   `json:"authRequired,omitempty"`
	AuthURL      string `json:"authUrl,omitempty"`
}

// Saved reports whether the document has a usable URL.
func (r Result) Saved() bool {
	return !r.AuthRequired && r.DocURL != "" && r.DocURL != NoURL
}

// RetryPolicy bounds how many times a call is attempted. Each failed
// attempt drops the session, so the next attempt reconnects.
type RetryPolicy struct {
	Attempts int
}

func (p RetryPolicy) attempts() int {
	return max(p.Attempts, 1)
}

// Store creates documents over a Conn.
type Store struct {
	conn   *Conn
	retry  RetryPolicy
	logger *logging.Logger
}

// New returns a Store. The Store does not own conn; callers close it.
func New(conn *Conn, retry RetryPolicy, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{conn: conn, retry: retry, logger: logger.WithComponent("docstore")}
}

// CreateDocument saves content as a new Google Doc titled title. email,
// when set, is passed as the Workspace account to act for.
func (s *Store) CreateDocument(ctx context.Context, title, content, email string) Result {
	args := map[string]any{"title": title, "content": content}
	if email != "" {
		args["user_google_email"] = email
	}

	var lastErr error
	for attempt := 1; attempt <= s.retry.attempts(); attempt++ {
		res, err := s.conn.CallTool(ctx, CreateDocTool, args)
		if err != nil {
			lastErr = err
			s.logger.Warn("create_doc call failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return s.parse(res)
	}
	s.logger.Error("failed to create document", "title", title, "error", lastErr)
	return Result{DocID: FailedID, DocURL: NoURL}
}

func (s *Store) parse(res *mcp.CallToolResult) Result {
	text := firstText(res)
	if res.IsError {
		if isAuthHint(text) {
			s.logger.Info("google authorization required")
			return Result{DocID: AuthRequiredID, DocURL: NoURL, AuthRequired: true, AuthURL: authLink(text)}
		}
		s.logger.Error("create_doc returned an error", "error", text)
		return Result{DocID: FailedID, DocURL: NoURL}
	}
	return parseCreated(text)
}

// docIDPattern finds an ID in free-text responses such as
// "Created document ID: 1AbC".
var docIDPattern = regexp.MustCompile(`[dD]ocument[_\s]?[iI][dD][:\s]*["']?([a-zA-Z0-9_-]+)`)

var docLinkPattern = regexp.MustCompile(`https://docs\.google\.com/document/d/([a-zA-Z0-9_-]+)[^\s"'<>)]*`)

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>)]+`)

// parseCreated reads a successful create_doc response, either JSON or
// free text.
func parseCreated(text string) Result {
	var body struct {
		DocumentID  string `json:"documentId"`
		ID          string `json:"id"`
		DocID       string `json:"docId"`
		URL         string `json:"url"`
		DocumentURL string `json:"documentUrl"`
	}
	if err := json.Unmarshal([]byte(text), &body); err == nil {
		id := firstNonEmpty(body.DocumentID, body.ID, body.DocID)
		url := firstNonEmpty(body.URL, body.DocumentURL)
		switch {
		case url != "":
			return Result{DocID: firstNonEmpty(id, UnknownID), DocURL: url}
		case id != "":
			return Result{DocID: id, DocURL: DocURL(id)}
		}
	}
	if m := docLinkPattern.FindStringSubmatch(text); m != nil {
		return Result{DocID: m[1], DocURL: m[0]}
	}
	if m := docIDPattern.FindStringSubmatch(text); m != nil {
		return Result{DocID: m[1], DocURL: DocURL(m[1])}
	}
	return Result{DocID: UnknownID, DocURL: NoURL}
}

func firstText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return tc.Text
		}
	}
	return ""
}

func isAuthHint(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "auth")
}

// authLink returns the first URL in text, or text itself when there is
// none.
func authLink(text string) string {
	if u := urlPattern.FindString(text); u != "" {
		return strings.TrimRight(u, ".,;")
	}
	return strings.TrimSpace(text)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// String is used in logs.
func (r Result) String() string {
	if r.AuthRequired {
		return "auth required"
	}
	return fmt.Sprintf("%s (%s)", r.DocID, r.DocURL)
}
