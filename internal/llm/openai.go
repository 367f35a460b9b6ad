package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when OpenAI.Model is empty.
const DefaultModel = "gpt-4o"

// OpenAI streams from any OpenAI-compatible /chat/completions endpoint.
type OpenAI struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client

	// Options are applied after the fields above.
	Options []option.RequestOption
}

// NewOpenAI returns a client for the given key with default settings.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{BaseURL: DefaultBaseURL, APIKey: apiKey, Model: DefaultModel}
}

func (o *OpenAI) client() openai.Client {
	opts := []option.RequestOption{option.WithBaseURL(o.baseURL())}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	return openai.NewClient(append(opts, o.Options...)...)
}

func (o *OpenAI) baseURL() string {
	if o.BaseURL == "" {
		return DefaultBaseURL
	}
	return o.BaseURL
}

func (o *OpenAI) model() string {
	if o.Model == "" {
		return DefaultModel
	}
	return o.Model
}

// Stream implements Streamer. The first chunk is read before returning so
// that a rejected request fails here rather than on the first Recv.
func (o *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	params := openai.ChatCompletionNewParams{Model: openai.ChatModel(o.model())}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	for _, t := range req.Tools {
		tool, err := toolParam(t)
		if err != nil {
			return nil, err
		}
		params.Tools = append(params.Tools, tool)
	}

	client := o.client()
	stream := client.Chat.Completions.NewStreaming(ctx, params)
	s := &openAIStream{stream: stream, tools: req.Tools}
	s.primed = stream.Next()
	if !s.primed {
		if err := stream.Err(); err != nil {
			_ = stream.Close()
			return nil, fmt.Errorf("calling model: %w", err)
		}
	}
	return s, nil
}

func toolParam(t mcp.Tool) (openai.ChatCompletionToolParam, error) {
	fn, err := FunctionFor(t)
	if err != nil {
		return openai.ChatCompletionToolParam{}, err
	}
	var params openai.FunctionParameters
	if err := json.Unmarshal(fn.Parameters, &params); err != nil {
		return openai.ChatCompletionToolParam{}, fmt.Errorf("decoding schema for %s: %w", t.Name, err)
	}
	def := openai.FunctionDefinitionParam{Name: fn.Name, Parameters: params}
	if fn.Description != "" {
		def.Description = openai.String(fn.Description)
	}
	return openai.ChatCompletionToolParam{Function: def}, nil
}

type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	acc    openai.ChatCompletionAccumulator
	tools  []mcp.Tool
	primed bool

	queue    []Fragment
	finished bool
	err      error
}

// Recv returns the next fragment. Tool-call deltas are accumulated and
// reported in index order once the choice finishes.
func (s *openAIStream) Recv() (Fragment, error) {
	for {
		if len(s.queue) > 0 {
			f := s.queue[0]
			s.queue = s.queue[1:]
			return f, nil
		}
		if s.err != nil {
			return Fragment{}, s.err
		}
		s.err = s.advance()
	}
}

// advance consumes one chunk of the response.
func (s *openAIStream) advance() error {
	if s.primed {
		s.primed = false
	} else if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return fmt.Errorf("reading model stream: %w", err)
		}
		if !s.finished {
			return fmt.Errorf("model stream ended before completion: %w", io.ErrUnexpectedEOF)
		}
		return io.EOF
	}

	chunk := s.stream.Current()
	s.acc.AddChunk(chunk)
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			s.queue = append(s.queue, TextFragment(choice.Delta.Content))
		}
		if choice.FinishReason != "" && !s.finished {
			s.finished = true
			if err := s.flushCalls(); err != nil {
				return err
			}
		}
	}
	return nil
}

// flushCalls validates the accumulated tool calls and queues them.
func (s *openAIStream) flushCalls() error {
	if len(s.acc.Choices) == 0 {
		return nil
	}
	for _, tc := range s.acc.Choices[0].Message.ToolCalls {
		f, err := decodeToolCall(s.tools, tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return err
		}
		s.queue = append(s.queue, f)
	}
	return nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
