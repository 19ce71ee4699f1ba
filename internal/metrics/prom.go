package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/silkgo/internal/stream"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// StreamObserver exports stream metrics to Prometheus.
type StreamObserver struct {
	framesTotal      *prometheus.CounterVec
	bytesTotal       *prometheus.CounterVec
	handshakeTotal   *prometheus.CounterVec
	handshakeLatency prometheus.Histogram
	keepAliveTotal   prometheus.Counter
	closeTotal       *prometheus.CounterVec
}

var _ stream.Observer = (*StreamObserver)(nil)

// NewStreamObserver registers stream metrics on the registry.
func NewStreamObserver(reg *prometheus.Registry) *StreamObserver {
	o := &StreamObserver{
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silkgo_stream_frames_total",
			Help: "Frames by direction and message id.",
		}, []string{"direction", "msg_id"}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silkgo_stream_bytes_total",
			Help: "Frame bytes including the header, by direction.",
		}, []string{"direction"}),
		handshakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silkgo_stream_handshake_total",
			Help: "Handshake outcomes.",
		}, []string{"result"}),
		handshakeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "silkgo_stream_handshake_latency_seconds",
			Help:    "Time from Authenticate to DONE or failure.",
			Buckets: prometheus.DefBuckets,
		}),
		keepAliveTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "silkgo_stream_keepalive_total",
			Help: "Keep-alive frames sent.",
		}),
		closeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silkgo_stream_close_total",
			Help: "Stream close reasons.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		o.framesTotal,
		o.bytesTotal,
		o.handshakeTotal,
		o.handshakeLatency,
		o.keepAliveTotal,
		o.closeTotal,
	)
	return o
}

func (o *StreamObserver) Frame(dir stream.Direction, id uint16, size int) {
	o.framesTotal.WithLabelValues(string(dir), fmt.Sprintf("%04X", id)).Inc()
	o.bytesTotal.WithLabelValues(string(dir)).Add(float64(size))
}

func (o *StreamObserver) Handshake(result stream.HandshakeResult, d time.Duration) {
	o.handshakeTotal.WithLabelValues(string(result)).Inc()
	o.handshakeLatency.Observe(d.Seconds())
}

func (o *StreamObserver) KeepAlive() {
	o.keepAliveTotal.Inc()
}

func (o *StreamObserver) Close(reason stream.CloseReason) {
	o.closeTotal.WithLabelValues(string(reason)).Inc()
}
