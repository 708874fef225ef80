package mcp

import (
	"context"

	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type quickParams struct {
	Target   string  `json:"target" jsonschema:"URL to load test."`
	Rate     float64 `json:"rate,omitempty" jsonschema:"Target requests per second, used to derive counts."`
	Duration string  `json:"duration,omitempty" jsonschema:"Test duration token, e.g. 30s or 2m."`
	Count    int     `json:"count,omitempty" jsonschema:"Virtual user count; derived from rate and duration when omitted."`
	Num      int     `json:"num,omitempty" jsonschema:"Requests per virtual user; derived when omitted."`
	Insecure bool    `json:"insecure,omitempty" jsonschema:"Skip TLS verification (implied for https targets)."`
}

func (h *handler) quickHandler(ctx context.Context, req *mcp.CallToolRequest, params quickParams) (*mcp.CallToolResult, any, error) {
	res, err := h.client.QuickTest(ctx, artillery.QuickOptions{
		Target:   params.Target,
		Rate:     params.Rate,
		Duration: params.Duration,
		Count:    params.Count,
		Num:      params.Num,
		Insecure: params.Insecure,
	})
	if err != nil {
		return failResult(codeExecution, err)
	}
	h.saveRecord(report.Quick, res)
	return okResult(res)
}
