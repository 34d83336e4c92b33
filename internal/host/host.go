// Package host assembles a running blinkbreak instance: the orchestrator,
// its tick driver, the guided routine runner and every event consumer.
// Both the terminal and the tray front ends run on top of it.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blinkbreak/internal/config"
	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/orchestrator"
	"blinkbreak/internal/core/timekeeper"
	"blinkbreak/internal/metrics"
	"blinkbreak/internal/notify"
	"blinkbreak/internal/platform"
	"blinkbreak/internal/routine"
	"blinkbreak/internal/storage"
)

// Options configures New.
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// Sinks receive notifications. None means notifications are dropped.
	Sinks []notify.Sink
	// IdleChecker overrides the platform idle provider.
	IdleChecker orchestrator.IdleChecker
	// Guard, when set, serves remote control commands.
	Guard *platform.InstanceGuard
	// OnStatus is called after every refresh with the current status.
	OnStatus func(orchestrator.Status)
	// OnStep is called as the guided routine moves between cues.
	OnStep func(model.ActivityKind, routine.Step)

	OrchestratorOptions []orchestrator.Option
}

// Host owns one instance and its consumers.
type Host struct {
	config   *config.Config
	logger   *zap.Logger
	guard    *platform.InstanceGuard
	onStatus func(orchestrator.Status)

	bus          *events.Bus
	orchestrator *orchestrator.Orchestrator
	runner       *routine.Runner
	notifier     *notify.Notifier
	collector    *metrics.Collector
	store        storage.Store

	detach []func()
}

// New loads settings, opens the interval store and wires the consumers.
func New(options Options) (*Host, error) {
	if options.Config == nil {
		return nil, errors.New("new host: config is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	settings, err := storage.LoadSettings(options.Config.SettingsPath)
	if err != nil {
		logger.Warn("settings load failed, using defaults", zap.String("path", options.Config.SettingsPath), zap.Error(err))
		settings = storage.DefaultSettings()
	}

	collector := metrics.NewCollector()
	bus := events.NewBus(
		events.WithLogger(logger),
		events.WithFailureHook(collector.RecordFailure),
	)

	idleChecker := options.IdleChecker
	if idleChecker == nil {
		idleChecker = platform.NewIdleProvider()
	}
	orchestratorOptions := append([]orchestrator.Option{
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithIdleChecker(idleChecker),
	}, options.OrchestratorOptions...)

	orch, err := orchestrator.New(settings.Cycle, bus, orchestratorOptions...)
	if err != nil {
		return nil, fmt.Errorf("new host: %w", err)
	}

	store, err := storage.Open(options.Config.StoreDriver, options.Config.StoreDSN, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("new host: %w", err)
	}

	host := &Host{
		config:       options.Config,
		logger:       logger,
		guard:        options.Guard,
		onStatus:     options.OnStatus,
		bus:          bus,
		orchestrator: orch,
		collector:    collector,
		store:        store,
	}

	runnerOptions := []routine.Option{routine.WithLogger(logger.Named("routine"))}
	if options.OnStep != nil {
		runnerOptions = append(runnerOptions, routine.WithStepHandler(options.OnStep))
	}
	routineConfig := routine.DefaultConfig()
	routineConfig.Budget = routine.BreakBudget(orch.Config())
	host.runner = routine.NewRunner(routineConfig, func(run uint64) {
		orch.SignalRunCompletion(run)
	}, runnerOptions...)

	host.notifier = notify.NewNotifier(logger.Named("notify"), options.Sinks...)
	host.notifier.SetEnabled(settings.NotificationsEnabled)

	host.detach = append(host.detach,
		collector.Attach(bus),
		host.notifier.Attach(bus),
	)
	if store != nil {
		host.detach = append(host.detach, storage.NewRecorder(store, logger.Named("recorder")).Attach(bus))
	}
	return host, nil
}

// Orchestrator returns the instance's orchestrator.
func (host *Host) Orchestrator() *orchestrator.Orchestrator {
	return host.orchestrator
}

// Bus returns the event bus.
func (host *Host) Bus() *events.Bus {
	return host.bus
}

// Store returns the interval store, or nil when persistence is disabled.
func (host *Host) Store() storage.Store {
	return host.store
}

// Run drives the instance until ctx is done.
func (host *Host) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return ignoreCanceled(host.orchestrator.Run(ctx, host.config.TickInterval))
	})
	group.Go(func() error {
		return ignoreCanceled(host.refreshLoop(ctx))
	})
	if host.config.MetricsAddr != "" {
		group.Go(func() error {
			return host.collector.Serve(ctx, host.config.MetricsAddr, host.logger.Named("metrics"))
		})
	}
	if host.config.SettingsPath != "" {
		group.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(host.config.SettingsPath), 0o755); err != nil {
				host.logger.Warn("settings watch disabled", zap.Error(err))
				return nil
			}
			return storage.WatchSettings(ctx, host.config.SettingsPath, host.logger.Named("settings"), host.ApplySettings)
		})
	}
	if host.guard != nil {
		group.Go(func() error {
			return ignoreCanceled(host.guard.Serve(ctx, host.Control))
		})
	}

	err := group.Wait()
	host.runner.Stop()
	host.runner.Wait()
	return err
}

// Refresh brings the routine runner in line with the activity and reports
// the status.
func (host *Host) Refresh(ctx context.Context) {
	status := host.orchestrator.Status()
	if status.Mode == timekeeper.ModeBreakReminder {
		host.runner.SetBudget(host.routineBudget(status))
	}
	host.runner.Sync(ctx, status.Activity)
	if host.onStatus != nil {
		host.onStatus(status)
	}
}

// routineBudget is the break time left for a routine started now: what
// remains of the break less the completion delay and one refresh period.
func (host *Host) routineBudget(status orchestrator.Status) time.Duration {
	remaining := time.Duration(status.RemainingSeconds * float64(time.Second))
	budget := remaining - host.orchestrator.Config().Activity.CompletionDelay - host.refreshInterval()
	return max(budget, time.Millisecond)
}

func (host *Host) refreshInterval() time.Duration {
	if host.config.TickInterval <= 0 {
		return orchestrator.DefaultTickInterval
	}
	return host.config.TickInterval
}

func (host *Host) refreshLoop(ctx context.Context) error {
	interval := host.refreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			host.Refresh(ctx)
		}
	}
}

// ApplySettings applies reloaded user settings.
func (host *Host) ApplySettings(settings storage.Settings) error {
	if err := host.orchestrator.UpdateConfig(settings.Cycle); err != nil {
		return err
	}
	host.notifier.SetEnabled(settings.NotificationsEnabled)
	return nil
}

// Control executes one remote command line and returns the reply line.
func (host *Host) Control(line string) string {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return "error: empty command"
	}

	orch := host.orchestrator
	var changed bool
	switch fields[0] {
	case "start":
		changed = orch.Start()
	case "pause":
		changed = orch.Pause()
	case "resume":
		changed = orch.Resume()
	case "toggle":
		changed = orch.Pause() || orch.Resume()
	case "reset":
		changed = orch.Reset()
	case "skip":
		changed = orch.SkipBreak()
	case "select":
		if len(fields) < 2 {
			return "error: select needs an activity"
		}
		kind, err := model.ParseActivityKind(fields[1])
		if err != nil {
			return "error: " + err.Error()
		}
		changed = orch.ManualSelect(kind)
	case "status":
		return FormatStatus(orch.Status())
	default:
		return fmt.Sprintf("error: unknown command %q", fields[0])
	}

	if !changed {
		return "ignored"
	}
	return "ok"
}

// Close detaches the consumers and closes the store.
func (host *Host) Close() error {
	host.runner.Stop()
	host.runner.Wait()
	for _, detach := range host.detach {
		detach()
	}
	host.detach = nil
	if host.store != nil {
		return host.store.Close()
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
