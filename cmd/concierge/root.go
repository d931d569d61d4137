package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/concierge/internal/cli"
	"github.com/aretw0/concierge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Concierge is a conversational front desk for small-business ERPs",
	Long: `Concierge turns free-text requests like "book service" into guided, multi-step
forms and confirms the result with a summary card. Run it as a terminal chat,
an HTTP API or an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (YAML or JSON)")
	rootCmd.PersistentFlags().String("store", "", "Conversation store: memory, redis, sqlite or file")
	rootCmd.PersistentFlags().String("flows", "", "Extra flow definitions file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store = v
	}
	if v, _ := cmd.Flags().GetString("flows"); v != "" {
		cfg.Flows = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, cfg.Validate()
}

// loadApp assembles the assistant for a command. The caller closes it.
func loadApp(ctx context.Context, cmd *cobra.Command, opts ...cli.AppOption) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, cfg, opts...)
}
