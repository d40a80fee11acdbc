package cmd

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vicomannen/winfade/internal/config"
	"github.com/vicomannen/winfade/internal/fade"
	"github.com/vicomannen/winfade/internal/logging"
	"github.com/vicomannen/winfade/internal/platform"
	"github.com/vicomannen/winfade/internal/sched"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fade daemon",
	Long: `Watch window move/resize interactions and animate opacity until
interrupted. Settings are re-read whenever the config file changes.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("no-watch", false, "Do not reload settings when the config file changes")
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	noWatch, _ := cmd.Flags().GetBool("no-watch")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}

	scheduler := sched.New()
	defer scheduler.Close()

	engine := fade.New(provider.System, scheduler, log, cfg.FadeOptions())
	defer engine.Close()

	// The app list is consulted per window via the owning executable.
	// Guarded because the settings watcher swaps the config concurrently
	// with event delivery.
	var cfgMu sync.RWMutex
	resolver, _ := provider.System.(platform.ProcessResolver)
	enabledFor := func(w platform.Window) bool {
		cfgMu.RLock()
		current := cfg
		cfgMu.RUnlock()
		if resolver == nil {
			return current.EnabledFor("")
		}
		exe, err := resolver.OwnerExecutable(w)
		if err != nil {
			log.Debug("owner lookup failed, using scope default",
				zap.Stringer("window", w), zap.Error(err))
			exe = ""
		}
		return current.EnabledFor(exe)
	}

	if !noWatch {
		watcher, err := config.NewWatcher(configPath, log, func(next config.Config) {
			cfgMu.Lock()
			cfg = next
			cfgMu.Unlock()
			engine.UpdateOptions(next.FadeOptions())
		})
		if err != nil {
			log.Warn("settings watcher unavailable, live reload disabled", zap.Error(err))
		} else {
			if err := watcher.Start(); err != nil {
				log.Warn("settings watcher failed to start, live reload disabled", zap.Error(err))
			}
			defer func() { _ = watcher.Stop() }()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgMu.RLock()
	log.Info("winfade running",
		zap.String("config", configPath),
		zap.Int("opacity", cfg.Opacity),
		zap.Int("fade_ms", cfg.FadeMs))
	cfgMu.RUnlock()

	err = provider.Events.Run(ctx, func(ev platform.Event) {
		engine.HandleEvent(ev.Window, ev.Kind, enabledFor(ev.Window))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("winfade stopped")
	return nil
}
