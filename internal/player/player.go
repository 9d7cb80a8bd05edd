// ABOUTME: File player driving the audio session
// ABOUTME: Decodes a file, paces buffers against the presentation clock and submits them
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/audiosession/pkg/audio"
	"github.com/Resonate-Protocol/audiosession/pkg/audio/decode"
	"github.com/Resonate-Protocol/audiosession/pkg/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var log = logrus.WithField("module", "player")

// Sink receives paced buffers. session.Manager implements it.
type Sink interface {
	Submit(buf audio.Buffer)
	QueuedCount() int
	ClearBuffer()
}

// Config holds player configuration
type Config struct {
	Fs   afero.Fs
	Path string

	// Settings supplies the audio delay applied to play times
	Settings session.Settings

	// Lead is how far ahead of its play time a buffer is submitted
	Lead time.Duration

	// Late is how far behind its play time a buffer may be before it is dropped
	Late time.Duration
}

// Player plays one audio file. It is the decoder and playback engine the
// session manager drives.
type Player struct {
	config Config
	sink   Sink

	mu        sync.Mutex
	stream    decode.Stream
	desc      *audio.Descriptor
	playing   bool
	canPlay   bool
	position  time.Duration // presentation time at anchor
	anchor    time.Time
	skipUntil time.Duration
	eof       bool
	scheduler *Scheduler
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	finished  chan struct{}
	endOnce   sync.Once
}

// New creates a player for config.Path
func New(config Config) *Player {
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Lead <= 0 {
		config.Lead = 100 * time.Millisecond
	}
	if config.Late <= 0 {
		config.Late = 200 * time.Millisecond
	}

	return &Player{
		config:    config,
		scheduler: NewScheduler(config.Lead, config.Late),
		finished:  make(chan struct{}),
	}
}

// SetSink sets where paced buffers go
func (p *Player) SetSink(sink Sink) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
}

// OpenSuggestedAudio opens the file
func (p *Player) OpenSuggestedAudio() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return nil
	}

	stream, err := decode.Open(p.config.Fs, p.config.Path)
	if err != nil {
		return fmt.Errorf("failed to open audio: %w", err)
	}

	desc := stream.Descriptor()
	p.stream = stream
	p.desc = &desc
	p.canPlay = true
	p.eof = false
	p.position = 0
	p.skipUntil = 0
	return nil
}

// AudioStream describes the open file, nil when closed
func (p *Player) AudioStream() *audio.Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.desc
}

// AudioOpened reports whether a file is open
func (p *Player) AudioOpened() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

// CloseAudio stops playback and closes the file
func (p *Player) CloseAudio() {
	p.stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = false
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			log.Debugf("closing stream: %v", err)
		}
	}
	p.stream = nil
	p.desc = nil
	p.scheduler.Clear()
}

// IsPlaying reports whether playback is running
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// CurTime returns the presentation clock
func (p *Player) CurTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.curTime()
}

func (p *Player) curTime() time.Duration {
	if !p.playing {
		return p.position
	}
	return p.position + time.Since(p.anchor)
}

// ReSync restarts the presentation clock at at; decoded audio before it is skipped
func (p *Player) ReSync(stream *audio.Descriptor, at time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = at
	p.anchor = time.Now()
	p.skipUntil = at
	p.scheduler.Clear()
	if stream != nil {
		log.Debugf("Resync %s stream at %v", stream.Codec, at)
	}
}

// Play starts or resumes playback
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing || !p.canPlay || p.stream == nil {
		return
	}

	p.playing = true
	p.anchor = time.Now()
	p.scheduler.Retime(p.playAt)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(3)
	go func() {
		defer p.wg.Done()
		p.scheduler.Run(ctx)
	}()
	go p.feed(ctx, p.stream)
	go p.deliver(ctx)
}

// Pause stops playback, keeping the position
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.position = p.curTime()
	p.playing = false
	sink := p.sink
	p.mu.Unlock()

	p.stop()
	if sink != nil {
		sink.ClearBuffer()
	}
}

// TogglePlay pauses or resumes
func (p *Player) TogglePlay() {
	if p.IsPlaying() {
		p.Pause()
	} else {
		p.Play()
	}
}

// VideoOpened is always false, the player is audio only
func (p *Player) VideoOpened() bool { return false }

// DropAudioFrame drops decoded audio waiting for submission
func (p *Player) DropAudioFrame() {
	p.scheduler.Clear()
}

// SetCanPlay allows or forbids playback
func (p *Player) SetCanPlay(canPlay bool) {
	p.mu.Lock()
	p.canPlay = canPlay
	p.mu.Unlock()
	if !canPlay {
		p.Pause()
	}
}

// CanPlay reports whether playback is allowed
func (p *Player) CanPlay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canPlay
}

// Finished is closed once the whole file was played
func (p *Player) Finished() <-chan struct{} {
	return p.finished
}

// Stats returns pacing statistics
func (p *Player) Stats() SchedulerStats {
	return p.scheduler.Stats()
}

// Close stops playback and releases the file
func (p *Player) Close() error {
	p.CloseAudio()
	return nil
}

func (p *Player) stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// playAt maps a stream timestamp onto the wall clock (mu held)
func (p *Player) playAt(buf audio.Buffer) time.Time {
	var delay time.Duration
	if p.config.Settings != nil {
		delay = p.config.Settings.Delay()
	}
	return p.anchor.Add(buf.Timestamp - p.position + delay)
}

// feed decodes ahead of the clock and schedules buffers
func (p *Player) feed(ctx context.Context, stream decode.Stream) {
	defer p.wg.Done()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		buf, err := stream.Next()
		if errors.Is(err, io.EOF) {
			p.mu.Lock()
			p.eof = true
			p.mu.Unlock()
			return
		}
		if err != nil {
			log.Errorf("decode failed: %v", err)
			p.mu.Lock()
			p.eof = true
			p.mu.Unlock()
			return
		}

		p.mu.Lock()
		if buf.Timestamp+buf.Duration() <= p.skipUntil {
			p.mu.Unlock()
			continue
		}
		buf.PlayAt = p.playAt(buf)
		p.mu.Unlock()

		// stay at most twice the lead ahead of the clock
		for time.Until(buf.PlayAt) > 2*p.config.Lead {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		p.scheduler.Schedule(buf)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// deliver submits due buffers and detects the end of the file
func (p *Player) deliver(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case buf := <-p.scheduler.Output():
			p.mu.Lock()
			sink := p.sink
			p.mu.Unlock()
			if sink != nil {
				sink.Submit(buf)
			}
		case <-ticker.C:
			if p.drained() {
				p.mu.Lock()
				p.position = p.curTime()
				p.playing = false
				cancel := p.cancel
				p.cancel = nil
				p.mu.Unlock()

				if cancel != nil {
					cancel()
				}
				p.endOnce.Do(func() { close(p.finished) })
				log.Info("Playback finished")
				return
			}
		}
	}
}

func (p *Player) drained() bool {
	p.mu.Lock()
	eof, sink := p.eof, p.sink
	p.mu.Unlock()

	if !eof || p.scheduler.Len() > 0 || len(p.scheduler.output) > 0 {
		return false
	}
	return sink == nil || sink.QueuedCount() == 0
}
