// Package mcptools exposes the business-value core as MCP tools.
//
// Each tool is a struct with Definition returning the mcp.Tool schema and
// Handle processing a call. The tools are pure: no session, no remote store.
package mcptools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/metalagman/devboard/internal/workitem"
)

// Category argument names shared by the score and encode tools.
const (
	argGovType        = "gov_type"
	argImpact         = "impact"
	argCostSavings    = "cost_savings"
	argEffortCategory = "effort_category"
	argComplexity     = "complexity"
)

// categoryOptions declares the five category codes on a tool.
func categoryOptions(required bool) []mcp.ToolOption {
	code := func(name, desc string, maxCode int) mcp.ToolOption {
		opts := []mcp.PropertyOption{
			mcp.Description(desc),
			mcp.Min(1),
			mcp.Max(float64(maxCode)),
		}
		if required {
			opts = append(opts, mcp.Required())
		}
		return mcp.WithNumber(name, opts...)
	}
	return []mcp.ToolOption{
		code(argGovType, "Governance type: 1 RTB, 2 GTB, 3 TTB, 4 Compliance, 5 Discretionary", 5),
		code(argImpact, "Impact: 1 High, 2 Medium, 3 Low", 3),
		code(argCostSavings, "Cost savings: 1 High, 2 Medium, 3 Low", 3),
		code(argEffortCategory, "Effort: 1 Low, 2 Medium, 3 High", 3),
		code(argComplexity, "Complexity: 1 Low, 2 Medium, 3 High", 3),
	}
}

// selectionArg reads the category codes; missing codes stay zero.
func selectionArg(req mcp.CallToolRequest) workitem.CategorySelection {
	return workitem.CategorySelection{
		GovType:        req.GetInt(argGovType, 0),
		Impact:         req.GetInt(argImpact, 0),
		CostSavings:    req.GetInt(argCostSavings, 0),
		EffortCategory: req.GetInt(argEffortCategory, 0),
		Complexity:     req.GetInt(argComplexity, 0),
	}
}
