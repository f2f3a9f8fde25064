// Package metrics provides Prometheus metrics for the media service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mediaOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_operations_total",
			Help: "Total number of media manager operations",
		},
		[]string{"operation", "status"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_storage_operations_total",
			Help: "Total number of storage backend calls",
		},
		[]string{"operation", "status"},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_bytes_uploaded_total",
			Help: "Total bytes handed to the storage backend",
		},
	)

	fileVersionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_file_versions_created_total",
			Help: "Total number of file versions created",
		},
	)

	orphanedBlobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_orphaned_blobs_total",
			Help: "Blobs left behind by failed commits, by outcome",
		},
		[]string{"outcome"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordOperation counts a manager operation (add, update, remove, get).
func RecordOperation(operation string, err error) {
	mediaOperationsTotal.WithLabelValues(operation, status(err)).Inc()
}

// RecordStorage counts a storage backend call (save, remove).
func RecordStorage(operation string, err error) {
	storageOperationsTotal.WithLabelValues(operation, status(err)).Inc()
}

// RecordUpload counts a newly stored file version of the given size.
func RecordUpload(size int64) {
	bytesUploaded.Add(float64(size))
	fileVersionsCreated.Inc()
}

// RecordOrphan counts an orphaned blob event: "recorded", "reclaimed", "in_use" or "failed".
func RecordOrphan(outcome string) {
	orphanedBlobsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
