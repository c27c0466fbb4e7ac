package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion counters, labelled by terminal status.
var (
	DocumentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "renewal_calendar",
		Subsystem: "ingest",
		Name:      "documents_total",
		Help:      "Documents processed by the ingestion pipeline, by terminal status.",
	}, []string{"status"})

	OCRFallbackPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "renewal_calendar",
		Subsystem: "ingest",
		Name:      "ocr_fallback_pages_total",
		Help:      "Pages whose embedded text layer was below threshold and were OCRed.",
	})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "renewal_calendar",
		Subsystem: "ingest",
		Name:      "document_duration_seconds",
		Help:      "Wall time to ingest one document end to end.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
