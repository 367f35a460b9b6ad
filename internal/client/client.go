// Package client talks to a running Ensemble server. Client implements the
// session backend, so the terminal front end drives the same sequencer as
// the MCP server, only over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/HendryAvila/ensemble/internal/api"
	"github.com/HendryAvila/ensemble/internal/event"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Route   string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned %d", e.Route, e.Code)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Route, e.Code, e.Message)
}

// Client is an HTTP client for the Ensemble API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the server at baseURL. Streams may stay open
// for as long as the model takes, so the HTTP client has no overall
// timeout; cancel the context instead.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// OpenChat starts a chat stream.
func (c *Client) OpenChat(ctx context.Context, req api.ChatRequest) (event.Stream, error) {
	return c.stream(ctx, api.RouteChat, req)
}

// OpenDocument starts a document stream.
func (c *Client) OpenDocument(ctx context.Context, req api.DocumentRequest) (event.Stream, error) {
	return c.stream(ctx, api.RouteDocument, req)
}

// SaveDocument persists a document and creates its tasks. A degraded
// collaborator is not an error here; it shows up in the response.
func (c *Client) SaveDocument(ctx context.Context, req api.CompleteRequest) (api.CompleteResponse, error) {
	var out api.CompleteResponse
	if err := c.call(ctx, api.RouteComplete, req, &out); err != nil {
		return api.CompleteResponse{}, err
	}
	return out, nil
}

// CompleteTask marks a tracker task complete.
func (c *Client) CompleteTask(ctx context.Context, externalID string) error {
	return c.call(ctx, api.RouteTaskComplete, api.TaskCompleteRequest{ClickUpTaskID: externalID}, nil)
}

// Speak fetches speech audio for text.
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.post(ctx, api.RouteTTS, api.TTSRequest{Text: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return audio, nil
}

// Healthy reports whether the server answers its liveness probe.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+api.RouteHealth, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Route: api.RouteHealth, Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) stream(ctx context.Context, route string, body any) (event.Stream, error) {
	resp, err := c.post(ctx, route, body)
	if err != nil {
		return nil, err
	}
	return event.NewReader(resp.Body), nil
}

func (c *Client) call(ctx context.Context, route string, in, out any) error {
	resp, err := c.post(ctx, route, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", route, err)
	}
	return nil
}

// post sends a JSON body. On success the caller owns resp.Body; non-2xx
// answers are turned into a StatusError and closed here.
func (c *Client) post(ctx context.Context, route string, in any) (*http.Response, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", route, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &StatusError{Route: route, Code: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	return resp, nil
}

func errorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))
	var e api.ErrorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
