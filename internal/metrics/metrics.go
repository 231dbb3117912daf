package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswire_uploads_total",
		Help: "Image uploads by logical folder and outcome (stored, rejected, error).",
	}, []string{"folder", "result"})

	UploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newswire_upload_bytes",
		Help:    "Size of stored uploads.",
		Buckets: prometheus.ExponentialBuckets(16<<10, 4, 6),
	})

	AssetDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswire_asset_deletes_total",
		Help: "Asset deletions by outcome (deleted, default, missing, error).",
	}, []string{"result"})

	AuthzDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newswire_authz_decisions_total",
		Help: "Ownership gate decisions on content mutations.",
	}, []string{"decision"})

	ViewsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newswire_views_recorded_total",
		Help: "Article view rows successfully written to the database.",
	})

	ViewsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newswire_views_dropped_total",
		Help: "Article view events dropped because the writer queue was full or the insert failed.",
	})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
