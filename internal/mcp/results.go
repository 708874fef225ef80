package mcp

import (
	"context"

	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type resultsParams struct {
	RunID string `json:"run_id" jsonschema:"Run ID returned by art_run, art_run_inline or art_quick."`
}

// resultsData pairs the stored record with the raw, unprojected result
// file content.
type resultsData struct {
	Record *report.RunRecord `json:"record"`
	Raw    map[string]any    `json:"raw,omitempty"`
}

func (h *handler) resultsHandler(ctx context.Context, req *mcp.CallToolRequest, params resultsParams) (*mcp.CallToolResult, any, error) {
	record, err := h.store.Load(params.RunID)
	if err != nil {
		return failResult(codeExecution, err)
	}

	data := &resultsData{Record: record}
	if record.ResultPath != "" {
		raw, err := artillery.ParseResults(record.ResultPath)
		if err != nil {
			// Raw parse failures are fatal for this operation, unlike the
			// best-effort summary during a run.
			return failResult(codeParse, err)
		}
		data.Raw = raw
	}
	return okResult(data)
}
