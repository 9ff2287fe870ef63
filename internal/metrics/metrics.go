package metrics

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

const namespace = "cygbridge"

var (
	// Registry is a dedicated Prometheus registry for all cygbridge metrics.
	Registry = prometheus.NewRegistry()

	// ConversionDuration measures time spent inside the foreign conversion entry point.
	ConversionDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_us",
			Help:      "Duration of path conversions in microseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"direction"}, // posix_to_native | native_to_posix
	)

	// ConversionTotal counts conversions by direction and outcome.
	ConversionTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_total",
			Help:      "Total number of path conversions",
		},
		[]string{"direction", "outcome"}, // ok | not_representable | inactive
	)

	// SymlinkChecksTotal counts heuristic evaluations by result.
	SymlinkChecksTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symlink_checks_total",
			Help:      "Total number of compatibility symlink checks",
		},
		[]string{"result"}, // system | shortcut | plain | unknown
	)

	// LinksRecorded counts findings written to the link store.
	LinksRecorded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_recorded_total",
			Help:      "Compatibility symlinks persisted to the link store",
		},
		[]string{"source"}, // scan | watch | deref
	)

	// FilesScanned counts directory entries examined by scan and watch.
	FilesScanned = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_scanned_total",
			Help:      "Directory entries examined for compatibility symlinks",
		},
	)

	// LibraryLoaded reports 1 when the compatibility library is active.
	LibraryLoaded = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_loaded",
			Help:      "1 if the compatibility library and its conversion entry point were resolved",
		},
		[]string{"library"},
	)

	// AgentInfo exposes static information about the running binary.
	AgentInfo = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_info",
			Help:      "Static information about the running binary",
		},
		[]string{"os", "arch", "version"},
	)
)

func init() {
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	Registry.MustRegister(prometheus.NewGoCollector())
}

// SetAgentInfo publishes a single info metric for the running binary.
func SetAgentInfo(version string) {
	if version == "" {
		version = "dev"
	}
	AgentInfo.WithLabelValues(runtime.GOOS, runtime.GOARCH, version).Set(1)
}

// ObserveConversion records timing and outcome of a conversion.
func ObserveConversion(start time.Time, direction, outcome string) {
	elapsed := float64(time.Since(start)) / float64(time.Microsecond)
	ConversionDuration.WithLabelValues(direction).Observe(elapsed)
	ConversionTotal.WithLabelValues(direction, outcome).Inc()
}

// ObserveSymlinkCheck records the reason a heuristic check concluded as it did.
func ObserveSymlinkCheck(result string) {
	SymlinkChecksTotal.WithLabelValues(result).Inc()
}

// ObserveLinkRecorded counts a persisted finding.
func ObserveLinkRecorded(source string) {
	LinksRecorded.WithLabelValues(source).Inc()
}

// ObserveFileScanned counts one examined directory entry.
func ObserveFileScanned() {
	FilesScanned.Inc()
}

// SetLibraryLoaded publishes which library, if any, is active.
func SetLibraryLoaded(library string, loaded bool) {
	if library == "" {
		library = "none"
	}
	if loaded {
		LibraryLoaded.WithLabelValues(library).Set(1)
		return
	}
	LibraryLoaded.WithLabelValues(library).Set(0)
}

// Serve starts the /metrics HTTP endpoint on the provided address.
func Serve(ctx context.Context, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	srv := &http.Server{Addr: addr, Handler: mux}

	idleClosed := make(chan struct{})
	go func() {
		defer close(idleClosed)
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	klog.InfoS("Prometheus endpoint listening", "addr", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-idleClosed
		return nil
	}

	return err
}
