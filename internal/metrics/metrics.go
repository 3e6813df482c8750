package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once         sync.Once
	catalogScans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tunedeck",
			Subsystem: "catalog",
			Name:      "scans_total",
			Help:      "Number of music directory scans.",
		},
	)
	catalogScanErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tunedeck",
			Subsystem: "catalog",
			Name:      "scan_errors_total",
			Help:      "Scans that hit a filesystem error other than a missing directory.",
		},
	)
	catalogSongs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tunedeck",
			Subsystem: "catalog",
			Name:      "songs",
			Help:      "Number of songs found by the last scan.",
		},
	)
	catalogScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tunedeck",
			Subsystem: "catalog",
			Name:      "scan_duration_seconds",
			Help:      "Time spent enumerating the music directory.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedeck",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		},
		[]string{"method", "code"},
	)
	libraryEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunedeck",
			Subsystem: "library",
			Name:      "events_total",
			Help:      "Filesystem events seen on audio files in the music directory.",
		},
		[]string{"op"},
	)
)

func init() {
	once.Do(func() {
		prometheus.MustRegister(catalogScans, catalogScanErrors, catalogSongs, catalogScanDuration, httpRequests, libraryEvents)
	})
}

// ObserveCatalogScan records one directory scan.
func ObserveCatalogScan(songs int, took time.Duration, failed bool) {
	catalogScans.Inc()
	catalogSongs.Set(float64(songs))
	catalogScanDuration.Observe(took.Seconds())
	if failed {
		catalogScanErrors.Inc()
	}
}

// ObserveRequest counts one handled HTTP request by method and status.
func ObserveRequest(method string, code int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// IncLibraryEvent counts one watcher event on the music directory.
func IncLibraryEvent(op string) { libraryEvents.WithLabelValues(op).Inc() }

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
