// ABOUTME: Prometheus metrics for the audio session
// ABOUTME: Mirrors session snapshots into gauges served on /metrics
package metrics

import (
	"net/http"
	"sync"

	"github.com/Resonate-Protocol/audiosession/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "audiosession"
	subsystem = "output"
)

// Collector records session state
type Collector struct {
	registry *prometheus.Registry

	framesDisplayed prometheus.Gauge
	framesDropped   prometheus.Gauge
	queued          prometheus.Gauge
	volume          prometheus.Gauge
	muted           prometheus.Gauge
	enabled         prometheus.Gauge
	opened          prometheus.Gauge
	sampleRate      prometheus.Gauge
	delay           prometheus.Gauge
	rebuilds        prometheus.Counter
	device          *prometheus.GaugeVec

	mu         sync.Mutex
	sessionID  string
	lastDevice []string
}

// New creates a collector with its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &Collector{
		registry:        reg,
		framesDisplayed: gauge("frames_displayed", "Buffers submitted since the stream was (re)opened"),
		framesDropped:   gauge("frames_dropped", "Buffers dropped since the stream was (re)opened"),
		queued:          gauge("queued_buffers", "Buffers queued on the output device"),
		volume:          gauge("volume_percent", "Effective output volume percentage"),
		muted:           gauge("muted", "1 when output is muted"),
		enabled:         gauge("enabled", "1 when audio is enabled"),
		opened:          gauge("stream_opened", "1 when an audio stream is open"),
		sampleRate:      gauge("sample_rate_hz", "Negotiated input sample rate"),
		delay:           gauge("delay_seconds", "Configured audio delay"),
		rebuilds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_rebuilds_total",
			Help:      "Device sessions built",
		}),
		device: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "device_info",
			Help:      "Selected output device",
		}, []string{"device", "device_id"}),
	}
}

// Observe records a snapshot
func (c *Collector) Observe(snap session.Snapshot) {
	c.framesDisplayed.Set(float64(snap.FramesDisplayed))
	c.framesDropped.Set(float64(snap.FramesDropped))
	c.queued.Set(float64(snap.Queued))
	c.volume.Set(float64(snap.Volume))
	c.muted.Set(boolToFloat(snap.Mute))
	c.enabled.Set(boolToFloat(snap.Enabled))
	c.opened.Set(boolToFloat(snap.IsOpened))
	c.sampleRate.Set(float64(snap.SampleRate))
	c.delay.Set(snap.Delay.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.SessionID != "" && snap.SessionID != c.sessionID {
		c.rebuilds.Inc()
	}
	c.sessionID = snap.SessionID

	labels := []string{snap.Device, snap.DeviceID}
	if c.lastDevice != nil && (c.lastDevice[0] != labels[0] || c.lastDevice[1] != labels[1]) {
		c.device.DeleteLabelValues(c.lastDevice...)
	}
	c.device.WithLabelValues(labels...).Set(1)
	c.lastDevice = labels
}

// HandleUpdate records a session update
func (c *Collector) HandleUpdate(update session.Update) {
	c.Observe(update.Snapshot)
}

// Handler serves the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
