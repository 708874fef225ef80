// Package mcp provides the barrage MCP server, registering the
// artillery tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/barragehq/barrage"
	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/config"
	"github.com/barragehq/barrage/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg    *config.Config
	client *artillery.Client
	store  report.Store
	logger *slog.Logger
}

// NewServer creates an MCP server with all barrage tools registered.
func NewServer(cfg *config.Config, client *artillery.Client, store report.Store, logger *slog.Logger) *mcp.Server {
	h := &handler{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "barrage", Version: barrage.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "art_run",
		Description: `Run an artillery scenario file.

The path is resolved against the sandboxed work directory and must stay inside it.
Set output_json to capture a result file and get a normalized summary back.
Set validate_only to check the scenario without generating any traffic.`,
	}, guard(h.runHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name: "art_run_inline",
		Description: `Run an artillery scenario supplied as inline YAML text.

The scenario is written to a temporary file under the work directory, executed
like art_run, and the temporary file is always cleaned up afterwards.`,
	}, guard(h.runInlineHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name: "art_quick",
		Description: `Run an ad-hoc quick test against a single URL (no scenario file).

Virtual-user and per-user request counts are derived from rate and duration when
not given explicitly. Disabled unless the server was started with quick tests allowed.`,
	}, guard(h.quickHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "art_version",
		Description: "Report the version of the wrapped artillery binary.",
	}, guard(h.versionHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name: "art_results",
		Description: `Fetch a stored run record and the raw parsed result file for a run ID.

Use the run_id returned by art_run, art_run_inline or art_quick. The raw section
is the tool's full result JSON, unprojected.`,
	}, guard(h.resultsHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "art_capabilities",
		Description: "Report the server's effective limits, work directory, and detected binary.",
	}, guard(h.capabilitiesHandler))

	return s
}

// guard wraps a tool handler so an unexpected fault becomes an
// INTERNAL_ERROR outcome instead of escaping to the transport.
func guard[T any](fn mcp.ToolHandlerFor[T, any]) mcp.ToolHandlerFor[T, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, params T) (res *mcp.CallToolResult, out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				res, out, err = failResult(codeInternal, fmt.Errorf("unexpected fault: %v", r))
			}
		}()
		return fn(ctx, req, params)
	}
}
