package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Container metrics
	PartitionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sos_partitions_total",
			Help: "Total number of partitions by state",
		},
		[]string{"state"},
	)

	SchemasTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sos_schemas_total",
			Help: "Total number of schemas registered in the container",
		},
	)

	ObjectsAllocatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_objects_allocated_total",
			Help: "Total number of objects allocated, by schema",
		},
		[]string{"schema"},
	)

	ObjectsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_objects_deleted_total",
			Help: "Total number of objects deleted, by schema",
		},
		[]string{"schema"},
	)

	// Index metrics
	IndexInsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_index_inserts_total",
			Help: "Total number of index insertions, by schema and attribute",
		},
		[]string{"schema", "attr"},
	)

	IndexDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_index_deletes_total",
			Help: "Total number of index deletions, by schema and attribute",
		},
		[]string{"schema", "attr"},
	)

	IndexInsertErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_index_insert_errors_total",
			Help: "Total number of failed index insertions, by schema and attribute",
		},
		[]string{"schema", "attr"},
	)

	// Container operation latency
	ContainerOpenDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sos_container_open_duration_seconds",
			Help:    "Time taken to open a container in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sos_commit_duration_seconds",
			Help:    "Time taken to commit a container, by commit flag",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"flags"},
	)

	ObjectIndexDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sos_obj_index_duration_seconds",
			Help:    "Time taken to index an object across all its indexed attributes",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchemaAddDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sos_schema_add_duration_seconds",
			Help:    "Time taken to add a schema and materialize its indices",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(PartitionsTotal)
	prometheus.MustRegister(SchemasTotal)
	prometheus.MustRegister(ObjectsAllocatedTotal)
	prometheus.MustRegister(ObjectsDeletedTotal)
	prometheus.MustRegister(IndexInsertsTotal)
	prometheus.MustRegister(IndexDeletesTotal)
	prometheus.MustRegister(IndexInsertErrorsTotal)
	prometheus.MustRegister(ContainerOpenDuration)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(ObjectIndexDuration)
	prometheus.MustRegister(SchemaAddDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
