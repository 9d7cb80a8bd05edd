// ABOUTME: Main player application orchestration
// ABOUTME: Wires the session manager to the file player, UI, remote control and metrics
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/Resonate-Protocol/audiosession/internal/config"
	"github.com/Resonate-Protocol/audiosession/internal/discovery"
	"github.com/Resonate-Protocol/audiosession/internal/events"
	"github.com/Resonate-Protocol/audiosession/internal/metrics"
	"github.com/Resonate-Protocol/audiosession/internal/player"
	"github.com/Resonate-Protocol/audiosession/internal/remote"
	"github.com/Resonate-Protocol/audiosession/internal/ui"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/output"
	"github.com/Resonate-Protocol/audiosession/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var log = logrus.WithField("module", "app")

const statusInterval = 500 * time.Millisecond

// Config holds player configuration
type Config struct {
	Fs         afero.Fs
	ConfigPath string
	File       string

	// Backend overrides the backend named in the audio config
	Backend output.Backend

	UseTUI bool
	Paused bool
}

// Player represents the main player application
type Player struct {
	config Config
	cfg    *config.Config

	bus       *events.Bus
	backend   output.Backend
	devices   *output.DeviceList
	session   *session.Manager
	player    *player.Player
	metrics   *metrics.Collector
	remote    *remote.Server
	discovery *discovery.Manager
	watcher   *config.Watcher

	metricsServer *http.Server
	tuiProg       *tea.Program
	unsubscribe   []func()

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates the application and binds the audio session
func New(config Config, cfg *config.Config) (*Player, error) {
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}

	backend := config.Backend
	if backend == nil {
		var err error
		backend, err = output.New(cfg.Audio.Backend)
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		config:  config,
		cfg:     cfg,
		bus:     events.New(),
		backend: backend,
		devices: output.NewDeviceList(backend),
		metrics: metrics.New(),
		ctx:     ctx,
		cancel:  cancel,
	}

	p.player = player.New(player.Config{
		Fs:       config.Fs,
		Path:     config.File,
		Settings: cfg.Audio,
	})

	p.session = session.New(session.Config{
		Backend:           backend,
		Devices:           p.devices,
		Settings:          cfg.Audio,
		Decoder:           p.player,
		Player:            p.player,
		Notifier:          p.bus,
		VolumeMax:         cfg.Player.VolumeMax,
		VolumeOffset:      cfg.Player.VolumeOffset,
		AutoPlay:          !config.Paused,
		AudioDelayOffset:  cfg.Player.AudioDelayOffset,
		AudioDelayOffset2: cfg.Player.AudioDelayOffset2,
		Device:            cfg.Audio.Device,
	})
	p.player.SetSink(p.session)

	p.remote = remote.New(remote.Config{
		Addr:    cfg.Remote.Addr,
		Bus:     p.bus,
		Session: p.session,
	})
	p.remote.Handle("/metrics", p.metrics.Handler())

	p.unsubscribe = append(p.unsubscribe,
		p.bus.Subscribe(func(ev events.SessionUpdate) { p.metrics.HandleUpdate(ev.Update) }),
		p.bus.Subscribe(func(cmd events.Command) { p.HandleCommand(cmd) }),
		p.bus.Subscribe(func(ev events.ConfigReloaded) { p.ApplyConfig(ev.Config) }),
	)
	p.metrics.Observe(p.session.Snapshot())

	return p, nil
}

// Session returns the audio session manager
func (p *Player) Session() *session.Manager {
	return p.session
}

// Bus returns the application event bus
func (p *Player) Bus() *events.Bus {
	return p.bus
}

// Start starts every surface and opens the audio stream
func (p *Player) Start() error {
	if p.cfg.Remote.Addr != "" {
		if err := p.remote.Start(); err != nil {
			return fmt.Errorf("failed to start remote control: %w", err)
		}
		if p.cfg.Remote.MDNS {
			p.discovery = discovery.NewManager(discovery.Config{
				ServiceName: p.cfg.Remote.Name,
				Port:        p.remote.Port(),
			})
			if err := p.discovery.Advertise(); err != nil {
				log.Warnf("mDNS advertisement failed: %v", err)
			}
		}
	}

	if p.cfg.Metrics.Addr != "" {
		p.metricsServer = &http.Server{
			Addr:              p.cfg.Metrics.Addr,
			Handler:           p.metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := p.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	if p.config.ConfigPath != "" {
		w, err := config.Watch(p.config.Fs, p.config.ConfigPath, func(cfg *config.Config) {
			p.bus.Publish(events.ConfigReloaded{Config: cfg})
		})
		if err != nil {
			log.Warnf("Config watch disabled: %v", err)
		} else {
			p.watcher = w
		}
	}

	if p.config.UseTUI {
		p.startTUI()
	}

	if p.cfg.Audio.Enabled() {
		p.session.Enable()
	} else {
		log.Info("Audio disabled, not opening stream")
	}

	go p.statusLoop()
	return nil
}

// startTUI runs the terminal UI; quitting it stops the app
func (p *Player) startTUI() {
	var names []string
	for _, d := range p.devices.Devices() {
		names = append(names, d.Name)
	}

	model := ui.NewModel(filepath.Base(p.config.File), names, func(cmd events.Command) {
		p.bus.Publish(cmd)
	})
	p.tuiProg = ui.Run(model)

	p.unsubscribe = append(p.unsubscribe, p.bus.Subscribe(func(ev events.SessionUpdate) {
		p.tuiProg.Send(ui.StatusMsg{Snapshot: ev.Snapshot})
	}))

	go func() {
		if _, err := p.tuiProg.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
		p.cancel()
	}()
	p.tuiProg.Send(ui.StatusMsg{Snapshot: p.session.Snapshot()})
}

// statusLoop publishes counter changes and the player clock
func (p *Player) statusLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.session.Notify()
			if p.tuiProg != nil {
				stats := p.player.Stats()
				p.tuiProg.Send(ui.PlaybackMsg{
					Playing:  p.player.IsPlaying(),
					Position: p.player.CurTime(),
					Late:     stats.Dropped,
				})
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Wait blocks until the file finished, the UI quit or ctx is done
func (p *Player) Wait(ctx context.Context) {
	select {
	case <-p.player.Finished():
		log.Info("Playback finished")
	case <-p.ctx.Done():
	case <-ctx.Done():
	}
}

// Run starts the player and blocks until it is done
func (p *Player) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		p.Stop()
		return err
	}
	p.Wait(ctx)
	p.Stop()
	return nil
}

// HandleCommand applies a control command to the session
func (p *Player) HandleCommand(cmd events.Command) {
	log.Debugf("Command %s from %s", cmd.Command, cmd.Source)

	switch cmd.Command {
	case events.CommandVolume:
		p.session.SetVolume(cmd.Volume)
	case events.CommandVolumeUp:
		p.session.VolumeUp()
	case events.CommandVolumeDown:
		p.session.VolumeDown()
	case events.CommandMute:
		p.session.SetMute(cmd.Mute)
	case events.CommandToggle:
		p.session.Toggle()
	case events.CommandDevice:
		p.session.SetDevice(cmd.Device)
	case events.CommandToggleEnabled:
		p.session.ToggleEnabled()
	case events.CommandDelayAdd:
		p.session.DelayAdd()
	case events.CommandDelayRemove:
		p.session.DelayRemove()
	case events.CommandPlayPause:
		p.player.TogglePlay()
	default:
		log.Warnf("Unknown command %q", cmd.Command)
	}
}

// ApplyConfig applies the runtime audio settings of a reloaded config
func (p *Player) ApplyConfig(cfg *config.Config) {
	if cfg == nil || cfg.Audio == nil {
		return
	}

	if cfg.Audio.Device != "" && cfg.Audio.Device != p.session.Device() {
		log.Infof("Config selects device %s", cfg.Audio.Device)
		p.session.SetDevice(cfg.Audio.Device)
	}

	if delay := cfg.Audio.Delay(); delay != p.cfg.Audio.Delay() {
		p.cfg.Audio.SetDelay(delay)
		p.session.Notify()
	}

	if enabled := cfg.Audio.Enabled(); enabled != p.cfg.Audio.Enabled() {
		p.session.ToggleEnabled()
	}
}

// Stop stops the player; later calls do nothing
func (p *Player) Stop() {
	p.stopOnce.Do(p.stop)
}

func (p *Player) stop() {
	p.cancel()

	for _, unsub := range p.unsubscribe {
		unsub()
	}
	p.unsubscribe = nil

	if p.watcher != nil {
		p.watcher.Close()
	}
	if p.discovery != nil {
		p.discovery.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.remote.Stop(ctx); err != nil {
		log.Warnf("Remote shutdown error: %v", err)
	}
	if p.metricsServer != nil {
		p.metricsServer.Shutdown(ctx)
	}

	p.player.Close()
	p.session.Close()

	if p.tuiProg != nil {
		p.tuiProg.Quit()
	}
}
