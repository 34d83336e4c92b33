package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"blinkbreak/internal/platform"
)

const ctlTimeout = 2 * time.Second

var ctlCmd = &cobra.Command{
	Use:   "ctl <command> [activity]",
	Short: "Send a command to the running instance",
	Long: `Send a command to the running blinkbreak instance.

Commands: start, pause, resume, toggle, reset, skip, status, select <activity>.
Activities are named (left_right, up_down, blink, look_outside) or numbered 1-4.

Example:
  blinkbreak ctl pause
  blinkbreak ctl select blink`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCtl,
}

func init() {
	rootCmd.AddCommand(ctlCmd)
}

func runCtl(cmd *cobra.Command, args []string) error {
	reply, err := platform.SignalRunningInstance(instanceName, strings.Join(args, " "), ctlTimeout)
	if err != nil {
		return fmt.Errorf("no running instance: %w", err)
	}
	if message, failed := strings.CutPrefix(reply, "error: "); failed {
		return fmt.Errorf("%s", message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
