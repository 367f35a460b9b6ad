package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/singleflight"
)

// ToolCaller is the part of an MCP client session the store needs.
// *client.Client satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Dialer opens and initializes a new MCP session.
type Dialer func(ctx context.Context) (ToolCaller, error)

// dialTimeout bounds a detached dial so a server that never answers
// initialize cannot wedge later callers.
const dialTimeout = 30 * time.Second

// ClientInfo identifies this client during MCP initialization.
var ClientInfo = mcp.Implementation{Name: "ensemble", Version: "1.0.0"}

// DialHTTP returns a Dialer for a streamable-HTTP MCP server. baseURL is
// the server root; the MCP endpoint is baseURL + "/mcp/" unless baseURL
// already names it.
func DialHTTP(baseURL string) Dialer {
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/mcp") {
		endpoint += "/mcp"
	}
	endpoint += "/"

	return func(ctx context.Context) (ToolCaller, error) {
		c, err := client.NewStreamableHttpClient(endpoint)
		if err != nil {
			return nil, fmt.Errorf("creating MCP client: %w", err)
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("starting MCP client: %w", err)
		}
		init := mcp.InitializeRequest{}
		init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		init.Params.ClientInfo = ClientInfo
		if _, err := c.Initialize(ctx, init); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initializing MCP session with %s: %w", endpoint, err)
		}
		return c, nil
	}
}

// Conn is a lazily opened MCP session. The first call dials; concurrent
// first calls share one dial. A session that fails a call is dropped and
// the next call dials again.
type Conn struct {
	dial  Dialer
	group singleflight.Group

	mu      sync.Mutex
	current ToolCaller
	dials   int
}

// NewConn returns an unopened connection handle.
func NewConn(dial Dialer) *Conn {
	return &Conn{dial: dial}
}

// session returns the open session, dialing if there is none.
func (c *Conn) session(ctx context.Context) (ToolCaller, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur != nil {
		return cur, nil
	}

	ch := c.group.DoChan("dial", func() (any, error) {
		c.mu.Lock()
		if c.current != nil {
			cur := c.current
			c.mu.Unlock()
			return cur, nil
		}
		c.mu.Unlock()

		// The session outlives the caller that happened to open it.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dialTimeout)
		defer cancel()
		s, err := c.dial(dctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = s
		c.dials++
		c.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ToolCaller), nil
	}
}

// reset drops s if it is still the current session.
func (c *Conn) reset(s ToolCaller) {
	c.mu.Lock()
	if c.current != s {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()
	_ = s.Close()
}

// CallTool invokes a tool on the session. Transport errors drop the session.
func (c *Conn) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := s.CallTool(ctx, req)
	if err != nil {
		c.reset(s)
		return nil, err
	}
	return res, nil
}

// Close closes the open session, if any.
func (c *Conn) Close() error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}
