package mcptools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestScoreTool_Definition(t *testing.T) {
	t.Parallel()

	def := NewScoreTool().Definition()
	assert.Equal(t, "business_value_score", def.Name)
	assert.ElementsMatch(t,
		[]string{argGovType, argImpact, argCostSavings, argEffortCategory, argComplexity},
		def.InputSchema.Required)
	require.NotNil(t, def.Annotations.ReadOnlyHint)
	assert.True(t, *def.Annotations.ReadOnlyHint)
}

func TestScoreTool_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		isError bool
	}{
		{
			name: "top selection",
			args: map[string]any{argGovType: 1.0, argImpact: 1.0, argCostSavings: 1.0, argEffortCategory: 3.0, argComplexity: 1.0},
			want: "Score: 100\n",
		},
		{
			name: "discretionary low",
			args: map[string]any{argGovType: 5.0, argImpact: 3.0, argCostSavings: 3.0, argEffortCategory: 1.0, argComplexity: 3.0},
			want: "Score: 40\n",
		},
		{
			name:    "missing code",
			args:    map[string]any{argGovType: 1.0, argImpact: 1.0},
			isError: true,
		},
		{
			name:    "out of range",
			args:    map[string]any{argGovType: 6.0, argImpact: 1.0, argCostSavings: 1.0, argEffortCategory: 1.0, argComplexity: 1.0},
			isError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := NewScoreTool().Handle(context.Background(), makeReq(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.isError, res.IsError)
			if !tt.isError {
				assert.Contains(t, resultText(res), tt.want)
			}
		})
	}
}

func TestScoreTool_ListsLabels(t *testing.T) {
	t.Parallel()

	res, err := NewScoreTool().Handle(context.Background(), makeReq(map[string]any{
		argGovType: 4.0, argImpact: 2.0, argCostSavings: 2.0, argEffortCategory: 2.0, argComplexity: 2.0,
	}))
	require.NoError(t, err)
	text := resultText(res)
	assert.Contains(t, text, "- Gov: Compliance\n")
	assert.Contains(t, text, "- Effort: Medium\n")
}

func TestEncodeTagsTool_Handle(t *testing.T) {
	t.Parallel()

	res, err := NewEncodeTagsTool().Handle(context.Background(), makeReq(map[string]any{
		"tags":     "backend; Gov:RTB; urgent",
		argGovType: 2.0,
		argImpact:  1.0,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "backend; urgent; Gov:GTB; Impact:High", resultText(res))
}

func TestEncodeTagsTool_NoTags(t *testing.T) {
	t.Parallel()

	res, err := NewEncodeTagsTool().Handle(context.Background(), makeReq(map[string]any{argComplexity: 3.0}))
	require.NoError(t, err)
	assert.Equal(t, "Complexity:High", resultText(res))
}

func TestDecodeTagsTool_Handle(t *testing.T) {
	t.Parallel()

	res, err := NewDecodeTagsTool().Handle(context.Background(), makeReq(map[string]any{
		"tags": "api; Impact:Low; Gov:TTB; Impact:High",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got decodedTags
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.Equal(t, workitem.CategorySelection{GovType: 3, Impact: 3}, got.Categories)
	assert.Equal(t, []string{"api"}, got.Tags)
	assert.False(t, got.Complete)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, map[string]string{"Gov": "TTB", "Impact": "Low"}, got.Labels)
}

func TestDecodeTagsTool_RequiresTags(t *testing.T) {
	t.Parallel()

	res, err := NewDecodeTagsTool().Handle(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestStatesTool_Handle(t *testing.T) {
	t.Parallel()

	res, err := NewStatesTool().Handle(context.Background(), makeReq(map[string]any{
		"work_item_type": "Product Backlog Item",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t,
		"States for Product Backlog Item:\n1. New\n2. Approved\n3. Committed\n4. Done\n5. Removed\n",
		resultText(res))

	res, err = NewStatesTool().Handle(context.Background(), makeReq(map[string]any{
		"work_item_type": "User Story",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNewServer_RegistersTools(t *testing.T) {
	t.Parallel()

	tools := NewServer("test").ListTools()
	require.Len(t, tools, 4)
	for _, name := range []string{"business_value_score", "encode_category_tags", "decode_category_tags", "valid_states"} {
		assert.Contains(t, tools, name)
	}
}
