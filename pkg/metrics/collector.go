package metrics

import "time"

// ContainerStats is the subset of *sos.Container's read surface the
// collector needs. It is expressed as an interface rather than a
// direct dependency on package sos because sos itself depends on
// metrics for its gauges — a Container satisfies this interface
// structurally, with no import required in either direction.
type ContainerStats interface {
	PartitionCounts() map[string]int
	SchemaCount() int
}

// Collector periodically republishes container-wide gauges
// (partitions by state, schema count) that are cheap to recompute on a
// tick but awkward to keep live on every mutation.
type Collector struct {
	source ContainerStats
	stopCh chan struct{}
}

// NewCollector creates a collector over the given container.
func NewCollector(source ContainerStats) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds, in its own
// goroutine, collecting once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectPartitionMetrics()
	c.collectSchemaMetrics()
}

func (c *Collector) collectPartitionMetrics() {
	counts := c.source.PartitionCounts()
	for state, count := range counts {
		PartitionsTotal.WithLabelValues(state).Set(float64(count))
	}
}

func (c *Collector) collectSchemaMetrics() {
	SchemasTotal.Set(float64(c.source.SchemaCount()))
}
