package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalagman/devboard/internal/board"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/spf13/cobra"
)

func boardCmd() *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Browse work items in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			load := func(ctx context.Context) (*workitem.Model, error) {
				return svc.Load(ctx)
			}
			program := tea.NewProgram(board.New(load, style), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("board: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style for the detail pane (dark|light|notty)")
	return cmd
}
