package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blinkbreak/internal/config"
	"blinkbreak/internal/storage"
)

var settingsForce bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or create the settings file",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	Args:  cobra.NoArgs,
	RunE:  runSettingsInit,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPath,
}

func init() {
	settingsInitCmd.Flags().BoolVar(&settingsForce, "force", false, "Overwrite an existing settings file")
	settingsCmd.AddCommand(settingsShowCmd, settingsInitCmd, settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	settings, err := storage.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}
	serialized, err := storage.MarshalSettings(settings)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(serialized)
	return err
}

func runSettingsInit(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if !settingsForce {
		if _, err := os.Stat(cfg.SettingsPath); err == nil {
			return fmt.Errorf("settings file %s already exists (use --force to overwrite)", cfg.SettingsPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat settings file: %w", err)
		}
	}
	if err := storage.SaveSettings(cfg.SettingsPath, storage.DefaultSettings()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.SettingsPath)
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfg.SettingsPath)
	return nil
}
