package main

import (
	"context"
	"errors"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"

	"blinkbreak/internal/config"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/orchestrator"
	"blinkbreak/internal/core/timekeeper"
	"blinkbreak/internal/host"
	"blinkbreak/internal/logging"
	"blinkbreak/internal/notify"
	"blinkbreak/internal/platform"
	"blinkbreak/internal/routine"
	"blinkbreak/internal/storage"
	"blinkbreak/internal/ui/overlay"
	"blinkbreak/internal/ui/preferences"
	"blinkbreak/internal/ui/tray"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Logger())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	guard, err := platform.AcquireSingleInstance(config.AppName)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			reply, signalErr := platform.SignalRunningInstance(config.AppName, "start", 2*time.Second)
			logger.Info("already running", zap.String("reply", reply), zap.Error(signalErr))
			return
		}
		logger.Fatal("single instance", zap.Error(err))
	}
	defer func() { _ = guard.Release() }()

	fyneApp := app.NewWithID("com.blinkbreak.app")
	fyneApp.SetIcon(theme.VisibilityIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Error("system tray unsupported on this platform")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var instance *host.Host
	breakWindow := overlay.New(fyneApp, overlay.DefaultConfig())
	breakWindow.SetOnSkip(func() { instance.Orchestrator().SkipBreak() })
	breakWindow.SetOnSelect(func(kind model.ActivityKind) { instance.Orchestrator().ManualSelect(kind) })

	settings, err := storage.LoadSettings(cfg.SettingsPath)
	if err != nil {
		logger.Warn("settings load failed, using defaults", zap.Error(err))
		settings = storage.DefaultSettings()
	}
	prefsWindow := preferences.New(fyneApp, settings, func(updated storage.Settings) {
		if err := instance.ApplySettings(updated); err != nil {
			logger.Warn("settings rejected", zap.Error(err))
			return
		}
		if err := storage.SaveSettings(cfg.SettingsPath, updated); err != nil {
			logger.Error("settings save failed", zap.Error(err))
		}
	})

	control := func(command string) func() {
		return func() { instance.Control(command) }
	}
	manager := tray.New(desktopApp, tray.Icons{
		Active:   theme.VisibilityIcon(),
		Inactive: theme.VisibilityOffIcon(),
	}, tray.Callbacks{
		OnStart: control("start"),
		OnTogglePause: func() {
			if instance.Orchestrator().Mode() == timekeeper.ModePaused {
				instance.Orchestrator().Resume()
			} else {
				instance.Orchestrator().Pause()
			}
		},
		OnReset:     control("reset"),
		OnSkipBreak: control("skip"),
		OnSelect: func(kind model.ActivityKind) {
			instance.Orchestrator().ManualSelect(kind)
		},
		OnPreferences: prefsWindow.Show,
		OnQuit: func() {
			cancel()
			fyneApp.Quit()
		},
	}, host.FormatStatus)

	instance, err = host.New(host.Options{
		Config: cfg,
		Logger: logger,
		Sinks:  []notify.Sink{tray.NotificationSink{App: fyneApp}},
		Guard:  guard,
		OnStatus: func(status orchestrator.Status) {
			fyne.Do(func() {
				manager.Update(status)
				breakWindow.Update(status)
			})
		},
		OnStep: func(kind model.ActivityKind, step routine.Step) {
			fyne.Do(func() { breakWindow.SetCue(kind, step) })
		},
	})
	if err != nil {
		logger.Fatal("host", zap.Error(err))
	}
	defer func() { _ = instance.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := instance.Run(ctx); err != nil {
			logger.Error("host stopped", zap.Error(err))
			fyne.Do(fyneApp.Quit)
		}
	}()

	instance.Orchestrator().Start()
	fyneApp.Run()

	cancel()
	<-done
}
