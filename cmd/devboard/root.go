package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/metalagman/devboard/internal/config"
	"github.com/metalagman/devboard/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile   string
	debug     bool
	logFormat string
)

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "devboard",
		Short:        "devboard scores and links Azure DevOps work items",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format := logging.Format(logFormat)
			if format != logging.FormatConsole && format != logging.FormatJSON {
				return fmt.Errorf("unknown log format %q (want console or json)", logFormat)
			}
			logging.Init(debug, format)
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Warn().Err(err).Msg("load .env")
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringVar(&logFormat, "log-format", string(logging.FormatConsole), "log format (console|json)")
	flags.String("org", "", "Azure DevOps organization (overrides azure.organization)")
	flags.String("project", "", "Azure DevOps project (overrides azure.project)")
	mustBind("config", flags.Lookup("config"))
	mustBind("azure.organization", flags.Lookup("org"))
	mustBind("azure.project", flags.Lookup("project"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(itemsCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(purgeCmd())
	return rootCmd
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s flag: %v", key, err))
	}
}
