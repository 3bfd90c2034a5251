// Package metrics exposes Prometheus counters/gauges for the UDL core and a
// small /metrics + /ready HTTP surface, following the teacher's
// promauto-based wiring (internal/metrics in kstaniek/go-ampio-server)
// relabelled for the Wintex UDL domain.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shuckc/pytexalarm/internal/logging"
)

var (
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_frames_rx_total",
		Help: "Total UDL frames successfully parsed off the wire.",
	})
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_frames_tx_total",
		Help: "Total UDL frames written to the wire.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_malformed_frames_total",
		Help: "Total frames rejected for a bad length prefix.",
	})
	ChecksumBad = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_checksum_bad_total",
		Help: "Total frames whose checksum failed to close to zero, triggering resync.",
	})
	ReadsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_reads_issued_total",
		Help: "Total O/R memory read requests issued by the client.",
	})
	ReadsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_reads_applied_total",
		Help: "Total I/W read-response ranges applied to the memory model.",
	})
	WritesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_writes_applied_total",
		Help: "Total I/W write payloads applied to the memory model.",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "udl_sessions_active",
		Help: "Current number of active replay-server connections.",
	})
	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udl_sessions_total",
		Help: "Total replay-server connections accepted.",
	})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udl_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable values to bound cardinality).
const (
	ErrTransportRead  = "transport_read"
	ErrTransportWrite = "transport_write"
	ErrHandshake      = "handshake"
	ErrPersistence    = "persistence"
	ErrDecode         = "decode"
)

func IncFramesRx()      { FramesRx.Inc(); atomic.AddUint64(&localFramesRx, 1) }
func AddFramesTx(n int) { FramesTx.Add(float64(n)); atomic.AddUint64(&localFramesTx, uint64(n)) }
func IncMalformed()     { MalformedFrames.Inc() }
func IncChecksumBad()   { ChecksumBad.Inc(); atomic.AddUint64(&localChecksums, 1) }
func IncReadsIssued()   { ReadsIssued.Inc() }
func IncReadsApplied()  { ReadsApplied.Inc(); atomic.AddUint64(&localReads, 1) }
func IncWritesApplied() { WritesApplied.Inc(); atomic.AddUint64(&localWrites, 1) }
func IncSessionStart()  { SessionsTotal.Inc(); SessionsActive.Inc() }
func IncSessionEnd()    { SessionsActive.Dec() }
func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// local mirrored counters for cheap periodic logging without scraping
// Prometheus in-process.
var (
	localFramesRx  uint64
	localFramesTx  uint64
	localReads     uint64
	localWrites    uint64
	localChecksums uint64
	localErrors    uint64
)

// Snapshot is a cheap copy of local counters, used for --log-metrics-interval.
type Snapshot struct {
	FramesRx, FramesTx, Reads, Writes, ChecksumFailures, Errors uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesRx:         atomic.LoadUint64(&localFramesRx),
		FramesTx:         atomic.LoadUint64(&localFramesTx),
		Reads:            atomic.LoadUint64(&localReads),
		Writes:           atomic.LoadUint64(&localWrites),
		ChecksumFailures: atomic.LoadUint64(&localChecksums),
		Errors:           atomic.LoadUint64(&localErrors),
	}
}

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first real error doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrTransportRead, ErrTransportWrite, ErrHandshake, ErrPersistence, ErrDecode} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers the function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function, defaulting to true if
// none is set (so the endpoint doesn't flap before startup wiring completes).
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
