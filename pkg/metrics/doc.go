/*
Package metrics provides Prometheus metrics collection and exposition for sos.

Metrics are defined and registered at package init using the Prometheus
client library, giving visibility into container structure (partitions,
schemas), object lifecycle (allocations, deletes), index activity, and
operation latency. Metrics are exposed via an HTTP handler for scraping.

# Metrics Catalog

Container metrics:

  - sos_partitions_total{state}: Gauge, partitions by state (active/primary/offline)
  - sos_schemas_total: Gauge, number of schemas registered in the container
  - sos_objects_allocated_total{schema}: Counter, objects allocated by schema
  - sos_objects_deleted_total{schema}: Counter, objects deleted by schema

Index metrics:

  - sos_index_inserts_total{schema,attr}: Counter, successful index insertions
  - sos_index_deletes_total{schema,attr}: Counter, successful index deletions
  - sos_index_insert_errors_total{schema,attr}: Counter, failed index insertions

Operation latency:

  - sos_container_open_duration_seconds: Histogram, time to open a container
  - sos_commit_duration_seconds{flags}: Histogram, time to commit, by commit flag
  - sos_obj_index_duration_seconds: Histogram, time to index an object
  - sos_schema_add_duration_seconds: Histogram, time to add a schema and its indices

# Usage

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.ContainerOpenDuration)

	metrics.ObjectsAllocatedTotal.WithLabelValues("Job").Inc()

The Collector in collector.go republishes container-wide gauges on a
15-second tick, since partition/schema counts are cheap to recompute
but awkward to keep live on every mutation.
*/
package metrics
