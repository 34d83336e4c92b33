package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"blinkbreak/internal/config"
	"blinkbreak/internal/platform"
)

// newAutostart is replaced in tests.
var newAutostart = func() *platform.Autostart {
	return platform.NewAutostart(config.AppName)
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Start blinkbreak at login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable [executable]",
	Short: "Register blinkbreak to start at login",
	Long: `Register blinkbreak to start at login. The current executable is
registered unless another path is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAutostartEnable,
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop starting blinkbreak at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newAutostart().Disable(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Autostart disabled.")
		return nil
	},
}

var autostartPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the autostart entry lives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		location, err := newAutostart().Location()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), location)
		return nil
	},
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartPathCmd)
	rootCmd.AddCommand(autostartCmd)
}

func runAutostartEnable(cmd *cobra.Command, args []string) error {
	var execPath string
	if len(args) == 1 {
		execPath = args[0]
	} else {
		current, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		execPath = current
	}
	execPath, err := filepath.Abs(execPath)
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	autostart := newAutostart()
	if err := autostart.Enable(execPath); err != nil {
		return err
	}
	location, _ := autostart.Location()
	fmt.Fprintf(cmd.OutOrStdout(), "Autostart enabled: %s\n", location)
	return nil
}
