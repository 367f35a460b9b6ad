package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Function is the function-tool declaration of the chat completions API.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FunctionFor converts an MCP tool declaration to a function declaration.
// The input schema is already JSON Schema, so it is passed through.
func FunctionFor(tool mcp.Tool) (Function, error) {
	params, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return Function{}, fmt.Errorf("encoding schema for %s: %w", tool.Name, err)
	}
	return Function{Name: tool.Name, Description: tool.Description, Parameters: params}, nil
}

// schemaURL names the compiled resource; tool schemas are self-contained.
const schemaURL = "tool.json"

// CompileSchema compiles the tool's input schema.
func CompileSchema(tool mcp.Tool) (*jsonschema.Schema, error) {
	schema := tool.InputSchema
	if schema.Type == "" {
		schema.Type = "object"
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema for %s: %w", tool.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding schema for %s: %w", tool.Name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("loading schema for %s: %w", tool.Name, err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", tool.Name, err)
	}
	return sch, nil
}

// ValidateArgs checks args against the tool's declared input schema.
func ValidateArgs(tool mcp.Tool, args map[string]any) error {
	sch, err := CompileSchema(tool)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToolCall, err)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidToolCall, tool.Name, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidToolCall, tool.Name, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidToolCall, tool.Name, err)
	}
	return nil
}

// findTool returns the declaration named name.
func findTool(tools []mcp.Tool, name string) (mcp.Tool, bool) {
	i := slices.IndexFunc(tools, func(t mcp.Tool) bool { return t.Name == name })
	if i < 0 {
		return mcp.Tool{}, false
	}
	return tools[i], true
}

// decodeToolCall parses raw JSON arguments and validates them against the
// declared tool.
func decodeToolCall(tools []mcp.Tool, name, rawArgs string) (Fragment, error) {
	tool, ok := findTool(tools, name)
	if !ok {
		return Fragment{}, fmt.Errorf("%w: undeclared tool %q", ErrInvalidToolCall, name)
	}
	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Fragment{}, fmt.Errorf("%w: %s: arguments are not a JSON object: %v", ErrInvalidToolCall, name, err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}
	if err := ValidateArgs(tool, args); err != nil {
		return Fragment{}, err
	}
	return ToolFragment(name, args), nil
}
