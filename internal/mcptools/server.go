package mcptools

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
)

const serverInstructions = "devboard scores Azure DevOps work items by business value. " +
	"Use business_value_score to rate a selection, encode_category_tags to write it into a tag field, " +
	"decode_category_tags to read it back and valid_states to check a state before saving."

// NewServer creates the MCP server with every tool registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"devboard",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	scoreTool := NewScoreTool()
	s.AddTool(scoreTool.Definition(), scoreTool.Handle)

	encodeTool := NewEncodeTagsTool()
	s.AddTool(encodeTool.Definition(), encodeTool.Handle)

	decodeTool := NewDecodeTagsTool()
	s.AddTool(decodeTool.Definition(), decodeTool.Handle)

	statesTool := NewStatesTool()
	s.AddTool(statesTool.Definition(), statesTool.Handle)

	return s
}

// Serve runs s over the given streams until ctx is done or in closes.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}
