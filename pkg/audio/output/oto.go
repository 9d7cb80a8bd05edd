// ABOUTME: Oto-based audio output backend
// ABOUTME: Plays the software mix on the host default device through oto
package output

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
)

// oto allows a single context per process, so every engine shares it
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedOtoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   DeviceFormat.SampleRate,
			ChannelCount: DeviceFormat.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = errors.Wrap(err, "failed to create oto context")
			return
		}
		<-readyChan
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Oto is the default-device-only backend
type Oto struct{}

// NewOto creates a new Oto backend
func NewOto() Backend {
	return &Oto{}
}

func (b *Oto) Name() string { return "oto" }

// NewEngine resumes the process-wide oto context
func (b *Oto) NewEngine() (Engine, error) {
	ctx, err := sharedOtoContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.Resume(); err != nil {
		return nil, errors.Wrap(err, "failed to resume oto context")
	}

	e := &otoEngine{ctx: ctx, done: make(chan struct{})}
	go e.watch()
	return e, nil
}

// Devices reports the host default only
func (b *Oto) Devices() ([]Device, error) {
	return []Device{{Name: DefaultDeviceName, IsDefault: true}}, nil
}

type otoEngine struct {
	mu     sync.Mutex
	ctx    *oto.Context
	onLost func()
	closed bool
	done   chan struct{}
}

// watch polls the context error, oto's only device failure signal
func (e *otoEngine) watch() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			if err := e.ctx.Err(); err != nil {
				log.Warnf("oto context failed: %v", err)
				e.mu.Lock()
				fn := e.onLost
				e.mu.Unlock()
				if fn != nil {
					go fn()
				}
				return
			}
		}
	}
}

func (e *otoEngine) NewMasteringVoice(deviceID string) (MasteringVoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if deviceID != "" {
		return nil, errors.Wrapf(ErrDeviceUnsupported, "oto cannot open device %q", deviceID)
	}

	v := &otoMaster{mixer: newMixer()}
	v.player = e.ctx.NewPlayer(v.mixer)
	v.player.SetBufferSize(DeviceFormat.SampleRate / 10 * bytesPerFrame)
	v.player.Play()

	log.Infof("Playback device opened: %dHz, %d channels (oto, default device)",
		DeviceFormat.SampleRate, DeviceFormat.Channels)

	return v, nil
}

func (e *otoEngine) NewSourceVoice(master MasteringVoice, format audio.Format) (SourceVoice, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrEngineClosed
	}
	return attachSourceVoice(master, format)
}

func (e *otoEngine) OnDeviceLost(fn func()) {
	e.mu.Lock()
	e.onLost = fn
	e.mu.Unlock()
}

// Close suspends the shared context; it cannot be destroyed and recreated
func (e *otoEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.onLost = nil
	close(e.done)

	if err := e.ctx.Suspend(); err != nil {
		return errors.Wrap(err, "failed to suspend oto context")
	}
	return nil
}

type otoMaster struct {
	*mixer
	mu     sync.Mutex
	player *oto.Player
}

func (v *otoMaster) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.player == nil {
		return nil
	}
	v.player.Pause()
	err := v.player.Close()
	v.player = nil
	return errors.Wrap(err, "failed to close oto player")
}
