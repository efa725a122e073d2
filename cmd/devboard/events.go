package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/metalagman/devboard/internal/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	var (
		itemID int
		limit  int
		all    bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded work item changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			storeDB, closeFn, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			filter := db.EventFilter{ItemID: itemID, Limit: limit}
			if !all {
				filter.Organization = cfg.Azure.Organization
				filter.Project = cfg.Azure.Project
			}
			events, err := db.NewStore(storeDB).ListEvents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				if events == nil {
					events = []db.Event{}
				}
				return writeJSON(cmd.OutOrStdout(), events)
			}
			if len(events) == 0 {
				log.Info().Msg("no events")
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderEvents(events))
			return err
		},
	}
	cmd.Flags().IntVar(&itemID, "item", 0, "only events of this work item")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	cmd.Flags().BoolVar(&all, "all", false, "include every organization and project")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func renderEvents(events []db.Event) string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.Time,
			ev.Organization + "/" + ev.Project,
			strconv.Itoa(ev.ItemID),
			ev.Type,
			ev.Message,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "SCOPE", "ITEM", "TYPE", "MESSAGE").
		Rows(rows...).
		String()
}
