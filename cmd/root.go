package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vpp/config"
	"github.com/kilianp07/vpp/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "vpp",
	Short: "Virtual power plant economic dispatch",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (json or yaml)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}
