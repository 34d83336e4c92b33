package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/orchestrator"
	"blinkbreak/internal/host"
	"blinkbreak/internal/notify"
	"blinkbreak/internal/platform"
	"blinkbreak/internal/routine"
)

var runNoStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the work/break cycle in this terminal",
	Long: `Run the work/break cycle in the foreground with a live status line.

Type a key and press enter:
  ` + keyHelp + `

Other terminals can drive the running instance with 'blinkbreak ctl'.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runNoStart, "no-start", false, "Wait for the start command instead of starting immediately")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	guard, err := platform.AcquireSingleInstance(instanceName)
	if err != nil {
		return fmt.Errorf("%w; use 'blinkbreak ctl' to control it", err)
	}
	defer func() { _ = guard.Release() }()

	out := cmd.OutOrStdout()
	printer := &statusPrinter{out: out}
	instance, err := host.New(host.Options{
		Config:   cfg,
		Logger:   logger,
		Sinks:    []notify.Sink{notify.NewBellSink(out), notify.NewDesktopSink()},
		Guard:    guard,
		OnStatus: printer.Status,
		OnStep:   printer.Step,
	})
	if err != nil {
		return err
	}
	defer func() { _ = instance.Close() }()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !runNoStart {
		instance.Orchestrator().Start()
	}
	printer.Line(keyHelp)

	go readCommands(cmd.InOrStdin(), func(line string) bool {
		command := translateKey(line)
		switch command {
		case "":
			return true
		case "q", "quit":
			cancel()
			return false
		case "h", "?", "help":
			printer.Line(keyHelp)
			return true
		}
		if reply := instance.Control(command); reply != "ok" {
			printer.Line(reply)
		}
		return true
	})

	err = instance.Run(ctx)
	printer.Line("bye")
	return err
}

// readCommands feeds input lines to handle until it returns false or the
// input ends.
func readCommands(input io.Reader, handle func(line string) bool) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if !handle(scanner.Text()) {
			return
		}
	}
}

// statusPrinter keeps a single rewritten status line on a terminal.
type statusPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (printer *statusPrinter) Status(status orchestrator.Status) {
	line := host.FormatStatus(status)
	printer.mu.Lock()
	defer printer.mu.Unlock()
	if line == printer.last {
		return
	}
	printer.last = line
	fmt.Fprintf(printer.out, "\r\033[K%s", line)
}

func (printer *statusPrinter) Step(kind model.ActivityKind, step routine.Step) {
	printer.Line(fmt.Sprintf("%s: %s for %s", kind.Title(), step.Pose.Cue(), step.Duration.Round(100*time.Millisecond)))
}

// Line prints a message above the status line.
func (printer *statusPrinter) Line(message string) {
	printer.mu.Lock()
	defer printer.mu.Unlock()
	fmt.Fprintf(printer.out, "\r\033[K%s\n", message)
	printer.last = ""
}
