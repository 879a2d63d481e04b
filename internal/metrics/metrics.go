// Package metrics provides Prometheus metrics for the capture and render pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wavering"

var (
	framesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "frames_total",
		Help:      "Frames drawn by the animation loop",
	})

	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "frame_duration_seconds",
		Help:      "Time spent drawing one frame",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .02, .033, .05, .1},
	})

	captureRecording = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "recording",
		Help:      "1 while a capture device is held",
	})

	captureStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "starts_total",
		Help:      "Successful capture starts",
	})

	captureErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "errors_total",
		Help:      "Failed capture starts by error code",
	}, []string{"code"})

	gallerySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gallery",
		Name:      "waveforms",
		Help:      "Waveforms stored in the session gallery",
	})

	persistResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publish",
		Name:      "persist_total",
		Help:      "persistWaveform outcomes",
	}, []string{"result"})

	deliveryResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publish",
		Name:      "delivery_total",
		Help:      "sendWaveform outcomes",
	}, []string{"result"})

	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency by operation and status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	// Local copy of frame stats for the status endpoint.
	frameStatsMu sync.RWMutex
	frameStats   FrameStats
)

// FrameStats summarises recent rendering.
type FrameStats struct {
	Frames       uint64
	LastDuration time.Duration
	LastDrawn    int
}

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// FrameObserver records animation loop frames.
type FrameObserver struct{}

// ObserveFrame records one frame that drew n waveforms.
func (FrameObserver) ObserveFrame(d time.Duration, n int) {
	framesRendered.Inc()
	frameDuration.Observe(d.Seconds())

	frameStatsMu.Lock()
	frameStats.Frames++
	frameStats.LastDuration = d
	frameStats.LastDrawn = n
	frameStatsMu.Unlock()
}

// GetFrameStats returns a copy of the frame stats.
func GetFrameStats() FrameStats {
	frameStatsMu.RLock()
	defer frameStatsMu.RUnlock()
	return frameStats
}

// SetRecording sets the recording gauge.
func SetRecording(recording bool) {
	if recording {
		captureRecording.Set(1)
		return
	}
	captureRecording.Set(0)
}

// IncCaptureStarts counts a successful start.
func IncCaptureStarts() { captureStarts.Inc() }

// IncCaptureErrors counts a failed start with the given error code.
func IncCaptureErrors(code string) { captureErrors.WithLabelValues(code).Inc() }

// SetGallerySize sets the gallery gauge.
func SetGallerySize(n int) { gallerySize.Set(float64(n)) }

// IncPersist counts a persist outcome ("ok" or a failure reason).
func IncPersist(result string) { persistResults.WithLabelValues(result).Inc() }

// IncDelivery counts a delivery outcome ("ok" or a failure reason).
func IncDelivery(result string) { deliveryResults.WithLabelValues(result).Inc() }

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(operation string, status int, d time.Duration) {
	httpRequests.WithLabelValues(operation, strconv.Itoa(status)).Observe(d.Seconds())
}
