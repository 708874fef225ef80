package mcp

import (
	"context"

	"github.com/barragehq/barrage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type capabilitiesParams struct{}

// capabilitiesData is a read-only diagnostic snapshot of the server's
// effective configuration, not a negotiable contract.
type capabilitiesData struct {
	ServerVersion    string   `json:"server_version"`
	ArtilleryVersion string   `json:"artillery_version"`
	Transports       []string `json:"transports"`
	TimeoutMs        int64    `json:"timeout_ms"`
	MaxOutputMB      int      `json:"max_output_mb"`
	AllowQuick       bool     `json:"allow_quick"`
	WorkDir          string   `json:"work_dir"`
	BinaryPath       string   `json:"binary_path"`
}

func (h *handler) capabilitiesHandler(ctx context.Context, req *mcp.CallToolRequest, _ capabilitiesParams) (*mcp.CallToolResult, any, error) {
	version, err := h.client.Version(ctx)
	if err != nil {
		return failResult(codeCapabilities, err)
	}

	return okResult(&capabilitiesData{
		ServerVersion:    barrage.Version,
		ArtilleryVersion: version,
		Transports:       []string{"stdio", "http"},
		TimeoutMs:        h.cfg.Timeout.Milliseconds(),
		MaxOutputMB:      h.cfg.MaxOutputMBValue(),
		AllowQuick:       h.cfg.AllowQuick,
		WorkDir:          h.cfg.WorkDir,
		BinaryPath:       h.cfg.BinaryPath,
	})
}
