// ABOUTME: Malgo-based audio output backend
// ABOUTME: Binds mastering voices to specific playback devices via miniaudio
package output

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"
)

// Malgo is the miniaudio backend. It is the only backend able to open a
// device other than the host default.
type Malgo struct{}

// NewMalgo creates a new Malgo backend
func NewMalgo() Backend {
	return &Malgo{}
}

func (b *Malgo) Name() string { return "malgo" }

// NewEngine initializes a miniaudio context
func (b *Malgo) NewEngine() (Engine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Trace(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize malgo context")
	}
	return &malgoEngine{ctx: ctx}, nil
}

// Devices lists playback devices through a short-lived context
func (b *Malgo) Devices() ([]Device, error) {
	engine, err := b.NewEngine()
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	return engine.(*malgoEngine).devices()
}

type malgoEngine struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	onLost func()
}

func (e *malgoEngine) context() (*malgo.AllocatedContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return nil, ErrEngineClosed
	}
	return e.ctx, nil
}

func (e *malgoEngine) devices() ([]Device, error) {
	ctx, err := e.context()
	if err != nil {
		return nil, err
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate playback devices")
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			Name:      info.Name(),
			ID:        info.ID.String(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

func (e *malgoEngine) lookup(deviceID string) (malgo.DeviceID, error) {
	ctx, err := e.context()
	if err != nil {
		return malgo.DeviceID{}, err
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceID{}, errors.Wrap(err, "failed to enumerate playback devices")
	}
	for _, info := range infos {
		if info.ID.String() == deviceID {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, errors.Wrapf(ErrDeviceNotFound, "malgo device %s", deviceID)
}

// NewMasteringVoice opens and starts a playback device in DeviceFormat
func (e *malgoEngine) NewMasteringVoice(deviceID string) (MasteringVoice, error) {
	ctx, err := e.context()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(DeviceFormat.Channels)
	deviceConfig.SampleRate = uint32(DeviceFormat.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	v := &malgoMaster{mixer: newMixer(), engine: e}
	if deviceID != "" {
		id, err := e.lookup(deviceID)
		if err != nil {
			return nil, err
		}
		v.id = id
		deviceConfig.Playback.DeviceID = v.id.Pointer()
	}

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			v.render(pOutputSample)
		},
		Stop: v.stopped,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize playback device")
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, errors.Wrap(err, "failed to start playback device")
	}
	v.device = device

	log.Infof("Playback device opened: %dHz, %d channels, %d-bit (malgo, id=%q)",
		DeviceFormat.SampleRate, DeviceFormat.Channels, DeviceFormat.BitDepth, deviceID)

	return v, nil
}

func (e *malgoEngine) NewSourceVoice(master MasteringVoice, format audio.Format) (SourceVoice, error) {
	if _, err := e.context(); err != nil {
		return nil, err
	}
	return attachSourceVoice(master, format)
}

func (e *malgoEngine) OnDeviceLost(fn func()) {
	e.mu.Lock()
	e.onLost = fn
	e.mu.Unlock()
}

// deviceLost runs off the audio thread so the handler may tear the device down
func (e *malgoEngine) deviceLost() {
	e.mu.Lock()
	fn := e.onLost
	e.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

// Close releases the miniaudio context
func (e *malgoEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		return nil
	}
	if err := e.ctx.Uninit(); err != nil {
		log.Warnf("malgo context uninit error: %v", err)
	}
	e.ctx.Free()
	e.ctx = nil
	e.onLost = nil
	return nil
}

type malgoMaster struct {
	*mixer
	engine  *malgoEngine
	id      malgo.DeviceID
	device  *malgo.Device
	closing atomic.Bool
}

// stopped is called by miniaudio whenever the device stops
func (v *malgoMaster) stopped() {
	if v.closing.Load() {
		return
	}
	log.Warn("playback device stopped unexpectedly")
	v.engine.deviceLost()
}

// Close stops and uninitializes the device
func (v *malgoMaster) Close() error {
	if v.closing.Swap(true) {
		return nil
	}
	if v.device == nil {
		return nil
	}
	if err := v.device.Stop(); err != nil {
		log.Warnf("device stop error: %v", err)
	}
	v.device.Uninit()
	v.device = nil
	return nil
}
