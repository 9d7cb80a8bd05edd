// ABOUTME: Entry point for the audio session player
// ABOUTME: Parses CLI flags, sets up logging and runs the player or device tools
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/audiosession/internal/app"
	"github.com/Resonate-Protocol/audiosession/internal/config"
	"github.com/Resonate-Protocol/audiosession/internal/discovery"
	"github.com/Resonate-Protocol/audiosession/internal/version"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/output"
	"github.com/joho/godotenv"
	"github.com/orandin/lumberjackrus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("module", "main")

func main() {
	envErr := loadEnv()

	cliApp := &cli.App{
		Name:    "audiosession",
		Usage:   "plays audio files through a managed output session",
		Version: version.Version,
		Before: func(ctx *cli.Context) error {
			if err := setupLogging(ctx); err != nil {
				return err
			}
			if envErr != nil {
				log.Debugf("Unable to load .env: %v", envErr)
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				EnvVars: []string{"CONFIG_FILENAME"},
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "specify the yml configuration location",
				Value:   "config.yml",
			},
			&cli.StringFlag{
				EnvVars: []string{"LOG_LEVEL"},
				Name:    "log_level",
				Aliases: []string{"l"},
				Usage:   "trace, debug, info, warn, error, fatal, panic",
			},
			&cli.StringFlag{
				EnvVars: []string{"LOG_PATH"},
				Name:    "log_path",
				Usage:   "Set a path for the log file. Set empty to disable.",
				Value:   "audiosession.log",
			},
			&cli.StringFlag{
				EnvVars: []string{"AUDIO_BACKEND"},
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "output backend: malgo, oto or null",
			},
			&cli.StringFlag{
				EnvVars: []string{"AUDIO_DEVICE"},
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "output device name",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "play",
				Usage:     "play an audio file (mp3, flac, wav)",
				ArgsUsage: "<file>",
				Action:    playMain,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-tui", Usage: "Disable TUI, stream logs instead"},
					&cli.BoolFlag{Name: "paused", Usage: "Open the file without starting playback"},
				},
			},
			{
				Name:   "devices",
				Usage:  "list output devices",
				Action: devicesMain,
			},
			{
				Name:  "discover",
				Usage: "find running sessions on the local network",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Value: 3 * time.Second},
				},
				Action: discoverMain,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnv reads .env files into the environment; missing files are not an error
func loadEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// setupLogging applies the log level and the rotating file hook
func setupLogging(ctx *cli.Context) error {
	level := logrus.InfoLevel
	if name := ctx.String("log_level"); name != "" {
		parsed, err := logrus.ParseLevel(name)
		if err != nil {
			return err
		}
		level = parsed
	}
	logrus.SetLevel(level)

	if path := ctx.String("log_path"); path != "" {
		hook, err := lumberjackrus.NewHook(&lumberjackrus.LogFile{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 2,
		}, level, &logrus.JSONFormatter{}, nil)
		if err != nil {
			return fmt.Errorf("unable to open log file: %w", err)
		}
		logrus.AddHook(hook)
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(ctx *cli.Context, fs afero.Fs) (*config.Config, error) {
	cfg, err := config.Load(fs, ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if backend := ctx.String("backend"); backend != "" {
		cfg.Audio.Backend = backend
	}
	if device := ctx.String("device"); device != "" {
		cfg.Audio.Device = device
	}
	if !ctx.IsSet("log_level") {
		if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			logrus.SetLevel(level)
		}
	}
	return cfg, nil
}

func playMain(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("expected exactly one file to play", 1)
	}

	fs := afero.NewOsFs()
	cfg, err := loadConfig(ctx, fs)
	if err != nil {
		return err
	}

	useTUI := !ctx.Bool("no-tui")
	if useTUI {
		// the TUI owns the terminal; logs only go to the file hook
		logrus.SetOutput(io.Discard)
	}

	log.WithFields(logrus.Fields{
		"version": version.Version,
		"file":    ctx.Args().First(),
		"backend": cfg.Audio.Backend,
	}).Info("Starting ", version.Product)

	player, err := app.New(app.Config{
		Fs:         fs,
		ConfigPath: ctx.String("config"),
		File:       ctx.Args().First(),
		UseTUI:     useTUI,
		Paused:     ctx.Bool("paused"),
	}, cfg)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := player.Run(sigCtx); err != nil {
		return err
	}
	log.Info("Player stopped")
	return nil
}

func devicesMain(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx, afero.NewOsFs())
	if err != nil {
		return err
	}

	backend, err := output.New(cfg.Audio.Backend)
	if err != nil {
		return err
	}

	devices := output.NewDeviceList(backend)
	if devices.Failed() {
		return cli.Exit("unable to enumerate output devices", 1)
	}

	for _, d := range devices.Devices() {
		marker := " "
		if d.Name == cfg.Audio.Device || (cfg.Audio.Device == "" && d.IsDefault) {
			marker = "*"
		}
		fmt.Fprintf(ctx.App.Writer, "%s %s\t%s\n", marker, d.Name, d.ID)
	}
	return nil
}

func discoverMain(ctx *cli.Context) error {
	peers, err := discovery.Browse(ctx.Duration("timeout"))
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Fprintln(ctx.App.Writer, "no sessions found")
		return nil
	}
	for _, p := range peers {
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%v\n", p.Name, p.Addr(), p.Info)
	}
	return nil
}
