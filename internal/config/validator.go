package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/HendryAvila/ensemble/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "docs.attempts")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, ValidationError{Field: "server.addr", Value: c.Server.Addr, Message: "must not be empty"})
	}

	urls := []struct{ field, value string }{
		{"server.url", c.Server.URL},
		{"llm.base_url", c.LLM.BaseURL},
		{"docs.mcp_url", c.Docs.MCPURL},
		{"tracker.base_url", c.Tracker.BaseURL},
		{"speech.base_url", c.Speech.BaseURL},
	}
	for _, u := range urls {
		if !validHTTPURL(u.value) {
			errs = append(errs, ValidationError{Field: u.field, Value: u.value, Message: "must be an http(s) URL"})
		}
	}

	if c.Docs.Attempts < 1 {
		errs = append(errs, ValidationError{Field: "docs.attempts", Value: c.Docs.Attempts, Message: "must be at least 1"})
	}

	level := strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	if !slices.Contains(logging.ValidLevels(), level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.ToLower(strings.Join(logging.ValidLevels(), ", "))),
		})
	}

	return errs
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func asNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	return errors.As(err, target)
}
