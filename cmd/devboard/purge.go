package main

import (
	"fmt"
	"time"

	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/session"
	"github.com/spf13/cobra"
)

func purgeCmd() *cobra.Command {
	var keepDays int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions and old events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("keep-days") {
				cfg.Events.KeepDays = keepDays
			}
			if cfg.Events.KeepDays < 0 {
				return fmt.Errorf("keep days must be >= 0")
			}
			storeDB, closeFn, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			// Purging never opens a sealed PAT, so a throwaway key will do.
			sessionStore, err := session.NewStore(storeDB, cfg.Session.TTL, nil)
			if err != nil {
				return err
			}
			sessions, err := sessionStore.PurgeExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			before := time.Now().AddDate(0, 0, -cfg.Events.KeepDays)
			events, err := db.NewStore(storeDB).PruneEvents(cmd.Context(), before)
			if err != nil {
				return fmt.Errorf("prune events: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired sessions and %d events older than %d days.\n",
				sessions, events, cfg.Events.KeepDays)
			return err
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep events this many days (overrides events.keep_days)")
	return cmd
}
