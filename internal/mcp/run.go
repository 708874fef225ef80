package mcp

import (
	"context"

	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Path         string            `json:"path" jsonschema:"Scenario file path, resolved against the work directory."`
	OutputJSON   string            `json:"output_json,omitempty" jsonschema:"Write the JSON result file here and return a normalized summary."`
	ReportHTML   string            `json:"report_html,omitempty" jsonschema:"Write an HTML report here."`
	Env          map[string]string `json:"env,omitempty" jsonschema:"Environment overrides for the artillery process."`
	Cwd          string            `json:"cwd,omitempty" jsonschema:"Working-directory override, must stay within the work directory."`
	ValidateOnly bool              `json:"validate_only,omitempty" jsonschema:"Validate the scenario without running it."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	res, err := h.client.RunFromFile(ctx, params.Path, runOptions(params))
	if err != nil {
		return failResult(codeExecution, err)
	}
	h.saveRecord(report.Run, res)
	return okResult(res)
}

type runInlineParams struct {
	Config       string            `json:"config" jsonschema:"Inline scenario YAML text."`
	OutputJSON   string            `json:"output_json,omitempty" jsonschema:"Write the JSON result file here and return a normalized summary."`
	ReportHTML   string            `json:"report_html,omitempty" jsonschema:"Write an HTML report here."`
	Env          map[string]string `json:"env,omitempty" jsonschema:"Environment overrides for the artillery process."`
	Cwd          string            `json:"cwd,omitempty" jsonschema:"Working-directory override, must stay within the work directory."`
	ValidateOnly bool              `json:"validate_only,omitempty" jsonschema:"Validate the scenario without running it."`
}

func (h *handler) runInlineHandler(ctx context.Context, req *mcp.CallToolRequest, params runInlineParams) (*mcp.CallToolResult, any, error) {
	opts := artillery.RunOptions{
		OutputJSON:   params.OutputJSON,
		ReportHTML:   params.ReportHTML,
		Env:          params.Env,
		Dir:          params.Cwd,
		ValidateOnly: params.ValidateOnly,
	}
	res, err := h.client.RunInline(ctx, params.Config, opts)
	if err != nil {
		return failResult(codeExecution, err)
	}
	h.saveRecord(report.Run, res)
	return okResult(res)
}

func runOptions(params runParams) artillery.RunOptions {
	return artillery.RunOptions{
		OutputJSON:   params.OutputJSON,
		ReportHTML:   params.ReportHTML,
		Env:          params.Env,
		Dir:          params.Cwd,
		ValidateOnly: params.ValidateOnly,
	}
}

// saveRecord stores the outcome for art_results. Validate-only results
// carry no run ID and are not stored; a store failure is not the
// caller's problem.
func (h *handler) saveRecord(kind report.Kind, res *artillery.RunResult) {
	if res.RunID == "" {
		return
	}
	if err := h.store.Save(report.FromRunResult(kind, res)); err != nil {
		h.logger.Warn("saving run record", "run_id", res.RunID, "error", err)
	}
}
