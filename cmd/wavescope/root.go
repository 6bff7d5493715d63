package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/wavescope/internal/app"
	"github.com/petems/wavescope/internal/audio"
	"github.com/petems/wavescope/internal/config"
	"github.com/petems/wavescope/internal/logging"
	"github.com/petems/wavescope/internal/permissions"
	"github.com/petems/wavescope/internal/tray"
	"github.com/petems/wavescope/internal/tui"
)

type options struct {
	configFile string
	backend    string
	ui         string
	device     string
	wavDir     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "wavescope",
		Short:         "Live waveform of an audio input device",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewer(cmd, opts)
		},
	}

	opts.bind(cmd)
	cmd.AddCommand(newDevicesCmd(opts))
	return cmd
}

func (o *options) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "config file (default "+config.Path()+")")
	flags.StringVar(&o.backend, "backend", "", "audio backend: portaudio, malgo or wav")
	flags.StringVar(&o.ui, "ui", "", "front end: tui or tray")
	flags.StringVar(&o.device, "device", "", "device id to start capturing from")
	flags.StringVar(&o.wavDir, "wav-dir", "", "directory of .wav files for the wav backend")
	flags.StringVar(&o.logLevel, "log-level", "", "trace, debug, info, warn or error")
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("ui") {
		cfg.UI = opts.ui
	}
	if flags.Changed("device") {
		cfg.DeviceID = opts.device
	}
	if flags.Changed("wav-dir") {
		cfg.WavDir = opts.wavDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func openHost(cfg *config.Config, log zerolog.Logger) (audio.Host, error) {
	// Replaying files needs no microphone access
	if cfg.Backend != audio.BackendWav {
		if err := permissions.EnsureMicrophone(); err != nil {
			return nil, err
		}
	}
	return audio.NewHost(cfg.Backend, audio.HostOptions{WavDir: cfg.WavDir, Logger: log})
}

func runViewer(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if cfg.UI != config.UITerminal && cfg.UI != config.UITray {
		return fmt.Errorf("unknown ui %q", cfg.UI)
	}

	// The terminal UI owns the screen, so it only logs to the file
	log := logging.NewWithLevel(cfg.LogLevel, cfg.UI != config.UITerminal)
	log.Info().Str("version", Version).Str("backend", cfg.Backend).Str("ui", cfg.UI).Msg("wavescope starting...")

	host, err := openHost(cfg, log)
	if err != nil {
		return err
	}
	defer host.Close()

	application := app.New(app.Config{
		Host:   host,
		Config: cfg,
		Logger: log,
	})
	restoreDevice(application, cfg.DeviceID, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.UI {
	case config.UITray:
		// Start tray UI - MUST run on main thread
		err = tray.New(application, cfg, Version, log).Run(ctx)
	default:
		err = tui.Run(ctx, application, cfg, log)
	}

	log.Info().Msg("Shutting down...")
	if serr := application.Shutdown(); serr != nil {
		log.Error().Err(serr).Msg("Shutdown error")
	}
	return err
}

// restoreDevice resumes capture from the remembered device if it is still
// present. Failing to do so leaves the viewer idle.
func restoreDevice(a *app.App, id string, log zerolog.Logger) {
	if id == "" {
		return
	}
	if err := a.SelectDevice(id); err != nil {
		log.Warn().Err(err).Str("device", id).Msg("Could not restore last device")
	}
}
