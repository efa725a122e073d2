package main

import (
	"os"

	"github.com/metalagman/devboard/internal/mcptools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the business value tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug().Msg("serving MCP over stdio")
			return mcptools.Serve(cmd.Context(), mcptools.NewServer(version), os.Stdin, os.Stdout)
		},
	}
}
