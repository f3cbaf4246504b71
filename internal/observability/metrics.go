package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
)

var (
	// MediaUploads counts image uploads by media host and outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_media_uploads_total",
		Help: "Total number of image uploads by host and outcome",
	}, []string{"host", "outcome"})

	// MediaUploadLatency records upload latency by host.
	MediaUploadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_media_upload_latency_seconds",
		Help:    "Image upload latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"host"})

	// MediaDeletes counts media deletions by reason (rollback, replace, remove) and outcome.
	MediaDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_media_deletes_total",
		Help: "Total number of media deletions by reason and outcome",
	}, []string{"reason", "outcome"})

	// CatalogWrites counts record writes by entity, operation and outcome.
	CatalogWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_record_writes_total",
		Help: "Total number of catalog record writes",
	}, []string{"entity", "operation", "outcome"})

	// CacheErrors counts failed Redis commands. Misses are not errors.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_errors_total",
		Help: "Failed Redis commands by command name",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})
)

// ObserveUpload records an upload attempt.
func ObserveUpload(host, outcome string, start time.Time) {
	MediaUploads.WithLabelValues(host, outcome).Inc()
	MediaUploadLatency.WithLabelValues(host).Observe(time.Since(start).Seconds())
}

// ObserveMediaDelete records a media deletion attempt.
func ObserveMediaDelete(reason, outcome string) {
	MediaDeletes.WithLabelValues(reason, outcome).Inc()
}

// ObserveWrite records a catalog record write.
func ObserveWrite(entity, operation string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	CatalogWrites.WithLabelValues(entity, operation, outcome).Inc()
}
