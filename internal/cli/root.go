// Package cli implements the blinkbreak command line.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blinkbreak/internal/config"
	"blinkbreak/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var envFile string

// instanceName names the single-instance guard. Tests override it.
var instanceName = config.AppName

var rootCmd = &cobra.Command{
	Use:   "blinkbreak",
	Short: "Eye-care break reminder with guided micro-activities",
	Long: `blinkbreak alternates work phases and short eye breaks. Each break
offers a guided micro-activity (look left and right, look up and down,
slow blinks, look into the distance) chosen automatically or by hand.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("blinkbreak version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Optional .env file with BLINKBREAK_* variables")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
