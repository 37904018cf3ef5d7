package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/entrhq/zotbridge/pkg/logging"
	"github.com/entrhq/zotbridge/pkg/tools"
)

var debugLog = logging.Component("mcp")

// Options configures a Server.
type Options struct {
	Name    string
	Version string
}

// Server exposes a tool registry over the Model Context Protocol. Arguments
// are validated against each tool's schema before dispatch, and the tool set
// can be replaced while serving.
type Server struct {
	info *sdk.Implementation
	sdk  *sdk.Server

	mu      sync.Mutex
	catalog *catalog
	runCtx  context.Context
}

// NewServer builds a Server for reg. Every tool schema must compile.
func NewServer(opts Options, reg *tools.Registry) (*Server, error) {
	cat, err := newCatalog(reg)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = "zotbridge"
	}
	s := &Server{
		info:    &sdk.Implementation{Name: name, Version: opts.Version},
		catalog: cat,
	}
	s.sdk = sdk.NewServer(s.info, &sdk.ServerOptions{
		Logger: debugLog.Slog(),
		Capabilities: &sdk.ServerCapabilities{
			Tools: &sdk.ToolCapabilities{ListChanged: true},
		},
	})
	s.register(nil, cat)
	return s, nil
}

// SetTools replaces the tool set and tells connected clients the list
// changed. It returns once the calls dispatched against the previous set
// have finished, so whatever backs those tools can be released.
func (s *Server) SetTools(reg *tools.Registry) error {
	cat, err := newCatalog(reg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.catalog
	s.catalog = cat
	s.register(prev, cat)
	s.mu.Unlock()

	debugLog.Infof("tool set replaced: %v", reg.Names())
	prev.active.Wait()
	return nil
}

// register mirrors next into the protocol server, dropping tools of prev
// that next no longer has.
func (s *Server) register(prev, next *catalog) {
	if prev != nil {
		var stale []string
		for _, name := range prev.registry.Names() {
			if _, ok := next.registry.Get(name); !ok {
				stale = append(stale, name)
			}
		}
		if len(stale) > 0 {
			s.sdk.RemoveTools(stale...)
		}
	}
	for _, t := range next.registry.List() {
		s.sdk.AddTool(&sdk.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}, s.handler(t.Name()))
	}
}

// Tools returns the descriptors tools/list reports.
func (s *Server) Tools() []ToolDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.descriptors()
}

// Serve speaks newline-delimited JSON-RPC on in and out until in reaches
// EOF or ctx is cancelled. Cancellation cancels the calls in flight, and
// Serve waits for them to reply before returning.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	rc, ok := in.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(in)
	}
	return s.Run(ctx, &sdk.IOTransport{Reader: rc, Writer: nopWriteCloser{out}})
}

// Run serves one session over t.
func (s *Server) Run(ctx context.Context, t sdk.Transport) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	debugLog.Infof("serving MCP as %s %s", s.info.Name, s.info.Version)
	err := s.sdk.Run(ctx, t)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// acquire pins the current catalog for one call.
func (s *Server) acquire() (*catalog, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.active.Add(1)
	runCtx := s.runCtx
	if runCtx == nil {
		runCtx = context.Background()
	}
	return s.catalog, runCtx
}

func (s *Server) handler(name string) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		cat, runCtx := s.acquire()
		defer cat.active.Done()

		tool, sch, ok := cat.lookup(name)
		if !ok {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("unknown tool: %s", name)}
		}
		args := req.Params.Arguments
		if err := validate(sch, args); err != nil {
			debugLog.Warnf("rejected arguments for %s: %v", name, err)
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid arguments for %s: %v", name, err)}
		}

		// The protocol layer never cancels handler contexts on shutdown.
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(runCtx, cancel)
		defer stop()

		return execute(callCtx, tool, args), nil
	}
}

func execute(ctx context.Context, tool tools.Tool, args json.RawMessage) (result *sdk.CallToolResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			debugLog.Errorf("tool %s panicked: %v", tool.Name(), r)
			result = textResult(fmt.Sprintf("tool %s failed: %v", tool.Name(), r), true)
		}
	}()

	text, metadata, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		debugLog.Warnf("tool %s failed after %s: %v", tool.Name(), elapsed, err)
		return textResult(err.Error(), true)
	}
	debugLog.Infof("tool %s completed in %s %v", tool.Name(), elapsed, metadata)
	return textResult(text, false)
}

func textResult(text string, isError bool) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
		IsError: isError,
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
