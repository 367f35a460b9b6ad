// Package tracker creates and completes tasks in ClickUp through its REST
// API v2.
//
// Like the document store, the tracker degrades instead of failing:
// CreateList answers UnconfiguredListID when no list is set, CreateTask
// answers FailedID on any error and CompleteTask reports a boolean. Errors
// are logged here and never returned.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HendryAvila/ensemble/internal/logging"
)

// DefaultBaseURL is the ClickUp API v2 root.
const DefaultBaseURL = "https://api.clickup.com/api/v2"

// Sentinels.
const (
	UnconfiguredListID = "unconfigured"
	FailedID           = "failed"
	NoURL              = "#"
)

// StatusComplete is the ClickUp status set by CompleteTask.
const StatusComplete = "complete"

// List is the container tasks are created in.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is a ClickUp task reference.
type Task struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	URL    string     `json:"url"`
	Status TaskStatus `json:"status"`
}

// TaskStatus is the workflow column a task sits in.
type TaskStatus struct {
	Status string `json:"status"`
}

// Created reports whether the tracker actually created the task.
func (t Task) Created() bool {
	return t.ID != "" && t.ID != FailedID
}

// Client talks to ClickUp. The zero value is not usable; use New.
type Client struct {
	baseURL    string
	apiKey     string
	listID     string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client. apiKey is a ClickUp personal token; listID is the
// list new tasks go to.
func New(apiKey, listID string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		listID:     listID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.WithComponent("tracker"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateList returns the configured list. Lists are not created per
// project; name is only echoed back.
func (c *Client) CreateList(_ context.Context, name string) List {
	if c.listID == "" {
		c.logger.Warn("no ClickUp list configured, tasks will not be tracked")
		return List{ID: UnconfiguredListID, Name: name}
	}
	return List{ID: c.listID, Name: name}
}

// CreateTask creates a task in listID, falling back to the configured list
// when listID is a sentinel.
func (c *Client) CreateTask(ctx context.Context, listID, name, description string) Task {
	target := listID
	if target == UnconfiguredListID || target == FailedID || target == "" {
		target = c.listID
	}
	failed := Task{ID: FailedID, Name: name, URL: NoURL}
	if target == "" {
		c.logger.Error("no valid ClickUp list ID available", "task", name)
		return failed
	}

	body := map[string]string{"name": name, "description": description}
	var out Task
	if err := c.do(ctx, http.MethodPost, "/list/"+url.PathEscape(target)+"/task", body, &out); err != nil {
		c.logger.Error("failed to create ClickUp task", "task", name, "error", err)
		return failed
	}
	if out.ID == "" {
		c.logger.Error("ClickUp returned a task without an id", "task", name)
		return failed
	}
	return out
}

// CompleteTask sets the task's status to complete. It reports whether
// ClickUp accepted the change.
func (c *Client) CompleteTask(ctx context.Context, taskID string) bool {
	if taskID == "" || taskID == FailedID {
		return false
	}
	body := map[string]string{"status": StatusComplete}
	if err := c.do(ctx, http.MethodPut, "/task/"+url.PathEscape(taskID), body, nil); err != nil {
		c.logger.Error("failed to complete ClickUp task", "task_id", taskID, "error", err)
		return false
	}
	return true
}

// GetTask fetches a task. ok is false when it cannot be read.
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, bool) {
	if taskID == "" || taskID == FailedID {
		return Task{}, false
	}
	var out Task
	if err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(taskID), nil, &out); err != nil {
		c.logger.Error("failed to get ClickUp task", "task_id", taskID, "error", err)
		return Task{}, false
	}
	return out, true
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("ClickUp API key is not configured")
	}
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	// ClickUp personal tokens go in the header as-is, without a scheme.
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ClickUp API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
