package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/metalagman/devboard/internal/workitem"
)

// StatesTool handles the valid_states MCP tool.
type StatesTool struct{}

// NewStatesTool creates a StatesTool.
func NewStatesTool() *StatesTool {
	return &StatesTool{}
}

// Definition returns the MCP tool definition for valid_states.
func (t *StatesTool) Definition() mcp.Tool {
	names := make([]string, 0, len(workitem.Types))
	for _, typ := range workitem.Types {
		names = append(names, string(typ))
	}
	return mcp.NewTool("valid_states",
		mcp.WithDescription("List the states a work item type may be in, initial state first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("work_item_type",
			mcp.Required(),
			mcp.Description("Work item type name"),
			mcp.Enum(names...),
		),
	)
}

// Handle processes the valid_states tool call.
func (t *StatesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := workitem.ParseType(req.GetString("work_item_type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "States for %s:\n", typ)
	for i, state := range workitem.ValidStates(typ) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, state)
	}
	return mcp.NewToolResultText(b.String()), nil
}
