package server

import (
	"fmt"
	"net/http"
	"sync/atomic"

	vmetrics "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/machingclee/muxtcp/lib/stats"
)

// serverMetrics collects the server's operational counters. The control
// loop is the only writer; the metrics endpoint reads concurrently, which
// is safe since every member is internally synchronized
type serverMetrics struct {
	set *vmetrics.Set

	accepts      *vmetrics.Counter
	acceptErrors *vmetrics.Counter
	rejections   *vmetrics.Counter
	disconnects  *vmetrics.Counter
	readErrors   *vmetrics.Counter
	bytesRead    *vmetrics.Counter

	connActive atomic.Int64

	// readRate tracks read throughput, readSizes the payload size
	// distribution
	readRate  gometrics.Meter
	readSizes *stats.SizeHistogram
}

// newServerMetrics creates a metric set scoped to one server instance
func newServerMetrics() *serverMetrics {
	set := vmetrics.NewSet()

	m := &serverMetrics{
		set:          set,
		accepts:      set.NewCounter("muxtcp_accepts_total"),
		acceptErrors: set.NewCounter("muxtcp_accept_errors_total"),
		rejections:   set.NewCounter("muxtcp_rejections_total"),
		disconnects:  set.NewCounter("muxtcp_disconnects_total"),
		readErrors:   set.NewCounter("muxtcp_read_errors_total"),
		bytesRead:    set.NewCounter("muxtcp_bytes_read_total"),
		readRate:     gometrics.NewMeter(),
		readSizes:    stats.NewSizeHistogram(),
	}

	set.NewGauge("muxtcp_active_connections", func() float64 {
		return float64(m.connActive.Load())
	})

	return m
}

// writeTo renders all metrics in Prometheus text format
func (m *serverMetrics) writeTo(w http.ResponseWriter) {
	m.set.WritePrometheus(w)

	rate := m.readRate.Snapshot()
	fmt.Fprintf(w, "muxtcp_read_rate_bytes_per_sec_1m %f\n", rate.Rate1())
	fmt.Fprintf(w, "muxtcp_read_size_avg_bytes %d\n", m.readSizes.AverageSize())
	fmt.Fprintf(w, "muxtcp_read_size_median_bytes %d\n", m.readSizes.MedianEstimate())
	fmt.Fprintf(w, "muxtcp_read_size_p95_bytes %d\n", m.readSizes.PercentileEstimate(95))
}

// serveMetrics runs the metrics HTTP listener. It lives on its own
// goroutine next to the control loop and only ever reads
func (s *Server) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.metrics.writeTo(w)
	})

	Logger.Infof("Starting metrics server on %s", s.config.MetricsEndpoint)
	Logger.Errorf("Metrics server stopped: %v", http.ListenAndServe(s.config.MetricsEndpoint, mux))
}
