package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/metalagman/devboard/internal/workitem"
)

// EncodeTagsTool handles the encode_category_tags MCP tool.
type EncodeTagsTool struct{}

// NewEncodeTagsTool creates an EncodeTagsTool.
func NewEncodeTagsTool() *EncodeTagsTool {
	return &EncodeTagsTool{}
}

// Definition returns the MCP tool definition for encode_category_tags.
func (t *EncodeTagsTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Merge category codes into a work item tag field. Existing category tags are replaced, " +
				"other tags keep their order. Codes left out produce no tag.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("tags",
			mcp.Description("Current tag field, tags separated by ';'"),
		),
	}
	opts = append(opts, categoryOptions(false)...)
	return mcp.NewTool("encode_category_tags", opts...)
}

// Handle processes the encode_category_tags tool call.
func (t *EncodeTagsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(workitem.EncodeTags(req.GetString("tags", ""), selectionArg(req))), nil
}

// DecodeTagsTool handles the decode_category_tags MCP tool.
type DecodeTagsTool struct{}

// NewDecodeTagsTool creates a DecodeTagsTool.
func NewDecodeTagsTool() *DecodeTagsTool {
	return &DecodeTagsTool{}
}

// Definition returns the MCP tool definition for decode_category_tags.
func (t *DecodeTagsTool) Definition() mcp.Tool {
	return mcp.NewTool("decode_category_tags",
		mcp.WithDescription(
			"Read the category codes, the remaining plain tags and the resulting score out of a work item tag field.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("tags",
			mcp.Required(),
			mcp.Description("Tag field, tags separated by ';'"),
		),
	)
}

type decodedTags struct {
	Categories workitem.CategorySelection `json:"categories"`
	Labels     map[string]string          `json:"labels"`
	Tags       []string                   `json:"tags"`
	Complete   bool                       `json:"complete"`
	Score      int                        `json:"score"`
}

// Handle processes the decode_category_tags tool call.
func (t *DecodeTagsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError("'tags' is required"), nil
	}
	sel := workitem.DecodeTags(tags)
	out := decodedTags{
		Categories: sel,
		Labels:     sel.Labels(),
		Tags:       workitem.StripCategoryTags(tags),
		Complete:   sel.Complete(),
		Score:      workitem.ComputeScore(sel),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
