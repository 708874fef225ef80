package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type versionParams struct{}

func (h *handler) versionHandler(ctx context.Context, req *mcp.CallToolRequest, _ versionParams) (*mcp.CallToolResult, any, error) {
	version, err := h.client.Version(ctx)
	if err != nil {
		return failResult(codeExecution, err)
	}
	return okResult(map[string]string{"version": version})
}
