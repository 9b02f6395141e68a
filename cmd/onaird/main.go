// Package main provides the onair daemon entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/godbus/dbus/v5"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/onair/internal/app/arbiter"
	"github.com/osa030/onair/internal/infra/config"
	"github.com/osa030/onair/internal/infra/control"
	"github.com/osa030/onair/internal/infra/logger"
	"github.com/osa030/onair/internal/infra/mpris"
	"github.com/osa030/onair/internal/infra/notify"
)

var (
	app        = kingpin.New("onaird", "single-active-player arbitration daemon for MPRIS media players")
	configPath = app.Flag("config", "Path to config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	disabled   = app.Flag("disabled", "Start with arbitration disabled").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	zlog.Info().Msgf("Loaded config from %s", path)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	settings, err := cfg.MPRISSettings()
	if err != nil {
		return fmt.Errorf("invalid bus settings: %w", err)
	}

	monitor := mpris.New(conn, mpris.Options{
		IgnoredPrefixes: settings.IgnoredPrefixes,
		PropertyTimeout: cfg.CommandTimeout(),
	})

	engine := arbiter.NewEngine(monitor, arbiter.Config{
		ResumeDelay:    cfg.ResumeDelay(),
		CommandTimeout: cfg.CommandTimeout(),
		Enabled:        cfg.Enabled() && !*disabled,
	})
	defer engine.Close()

	notifier := notify.Stub()
	if cfg.Notify.Enabled {
		notifier = notify.New(conn)
	}

	// Event channel feeds the debug log and desktop notifications; the
	// engine drops events when nobody drains them fast enough.
	go func() {
		for ev := range engine.Events() {
			zlog.Debug().Msgf("event: type=%s endpoint=%s status=%s", ev.Type, ev.Endpoint, ev.Status)
			switch ev.Type {
			case arbiter.EventAutoPaused:
				if err := notifier.Notify("Player paused", playerLabel(ev.Endpoint)); err != nil {
					zlog.Debug().Msgf("notification failed: %v", err)
				}
			case arbiter.EventResumed:
				if err := notifier.Notify("Player resumed", playerLabel(ev.Endpoint)); err != nil {
					zlog.Debug().Msgf("notification failed: %v", err)
				}
			}
		}
	}()

	// Match rules go in before the snapshot so status changes during
	// enumeration queue up for the monitor loop instead of being lost.
	if err := monitor.Subscribe(); err != nil {
		return fmt.Errorf("failed to subscribe to bus signals: %w", err)
	}

	if cfg.StartupReconcile() {
		states, err := monitor.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to enumerate players: %w", err)
		}
		engine.Reconcile(states)
	}

	if err := control.Export(conn, engine); err != nil {
		return fmt.Errorf("failed to export control interface: %w", err)
	}

	monitorErrCh := make(chan error, 1)
	go func() {
		monitorErrCh <- monitor.Run(ctx, engine)
	}()

	zlog.Info().Msg("onaird started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
		cancel()
		<-monitorErrCh
	case err := <-monitorErrCh:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("monitor error: %w", err)
		}
	}

	zlog.Info().Msg("onaird stopped")
	return nil
}

// playerLabel strips the MPRIS name prefix for human-readable output.
func playerLabel(id string) string {
	return strings.TrimPrefix(id, "org.mpris.MediaPlayer2.")
}
