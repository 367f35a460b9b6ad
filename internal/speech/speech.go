// Package speech turns assistant replies into audio with ElevenLabs and
// plays it one clip at a time.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ElevenLabs defaults.
const (
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModel   = "eleven_multilingual_v2"
	OutputFormat   = "mp3_44100_128"
)

// MaxChars bounds how much text is sent for synthesis.
const MaxChars = 500

var (
	// ErrUnavailable means no API key is configured.
	ErrUnavailable = errors.New("speech synthesis is not configured")
	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("no text provided")
)

// Client calls the ElevenLabs text-to-speech API.
type Client struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
}

// New returns a client. An empty voiceID selects DefaultVoiceID; an empty
// apiKey yields a client whose Synthesize returns ErrUnavailable.
func New(apiKey, voiceID string) *Client {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	return &Client{
		apiKey:     apiKey,
		voiceID:    voiceID,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL returns a copy of c using another API root.
func (c *Client) WithBaseURL(u string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(u, "/")
	return &cp
}

// Available reports whether synthesis is configured.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != ""
}

// Truncate returns at most n runes of text.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// Synthesize returns MP3 audio for text, truncated to MaxChars.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(map[string]string{
		"text":     Truncate(text, MaxChars),
		"model_id": DefaultModel,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding speech request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", c.baseURL, url.PathEscape(c.voiceID), OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating speech request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ElevenLabs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ElevenLabs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return audio, nil
}
