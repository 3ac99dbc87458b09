package main

import (
	"fmt"

	"agora/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Secrets carry yaml:"-" and never appear in the dump.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
