package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/metalagman/devboard/internal/workitem"
)

// ScoreTool handles the business_value_score MCP tool.
type ScoreTool struct{}

// NewScoreTool creates a ScoreTool.
func NewScoreTool() *ScoreTool {
	return &ScoreTool{}
}

// Definition returns the MCP tool definition for business_value_score.
func (t *ScoreTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Compute the 0-100 business value score of a work item from its five category codes. " +
				"Lower codes mean higher priority. Returns 0 unless every code is set.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	opts = append(opts, categoryOptions(true)...)
	return mcp.NewTool("business_value_score", opts...)
}

// Handle processes the business_value_score tool call.
func (t *ScoreTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel := selectionArg(req)
	if !sel.Complete() {
		return mcp.NewToolResultError("all five category codes are required and must be within their ranges"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d\n", workitem.ComputeScore(sel))
	labels := sel.Labels()
	for _, prefix := range []string{"Gov", "Impact", "Cost", "Effort", "Complexity"} {
		fmt.Fprintf(&b, "- %s: %s\n", prefix, labels[prefix])
	}
	return mcp.NewToolResultText(b.String()), nil
}
