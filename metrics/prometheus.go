package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	callsDesc = prometheus.NewDesc(
		"condacall_calls_total",
		"Calls by outcome",
		[]string{"env", "outcome"}, nil,
	)
	transportDesc = prometheus.NewDesc(
		"condacall_transport_failures_total",
		"Transport failures by kind",
		[]string{"env", "kind"}, nil,
	)
	spawnDesc = prometheus.NewDesc(
		"condacall_spawns_total",
		"Child process launches by result",
		[]string{"env", "result"}, nil,
	)
	relayedDesc = prometheus.NewDesc(
		"condacall_relayed_lines_total",
		"Child output lines relayed to the caller",
		[]string{"env"}, nil,
	)
	decodeDesc = prometheus.NewDesc(
		"condacall_decode_errors_total",
		"Unreadable result artifacts",
		[]string{"env"}, nil,
	)
	artifactDesc = prometheus.NewDesc(
		"condacall_artifact_writes_total",
		"Input artifact writes by result",
		[]string{"env", "backend", "result"}, nil,
	)
	cleanupDesc = prometheus.NewDesc(
		"condacall_cleanup_failures_total",
		"Swallowed artifact cleanup errors",
		[]string{"env", "backend"}, nil,
	)
	largeObjectDesc = prometheus.NewDesc(
		"condacall_large_objects_total",
		"Externalized large-object arguments",
		[]string{"env"}, nil,
	)
)

var _ prometheus.Collector = (*Collector)(nil)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		callsDesc, transportDesc, spawnDesc, relayedDesc,
		decodeDesc, artifactDesc, cleanupDesc, largeObjectDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector from a Snapshot, so a scrape
// never holds the collector lock while sending.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(callsDesc, s.CallsStarted, s.Env, "started")
	counter(callsDesc, s.CallsSucceeded, s.Env, "succeeded")
	counter(callsDesc, s.CallsRemoteFailed, s.Env, "remote_error")
	counter(callsDesc, s.CallsTransportFailed, s.Env, "transport_error")

	kinds := make([]string, 0, len(s.TransportByKind))
	for k := range s.TransportByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		counter(transportDesc, s.TransportByKind[k], s.Env, k)
	}

	counter(spawnDesc, s.SpawnSuccess, s.Env, "success")
	counter(spawnDesc, s.SpawnFailure, s.Env, "failure")
	counter(relayedDesc, s.RelayedLines, s.Env)
	counter(decodeDesc, s.DecodeErrors, s.Env)
	counter(artifactDesc, s.ArtifactWriteSuccess, s.Env, s.StorageBackend, "success")
	counter(artifactDesc, s.ArtifactWriteFailure, s.Env, s.StorageBackend, "failure")
	counter(cleanupDesc, s.CleanupFailures, s.Env, s.StorageBackend)
	counter(largeObjectDesc, s.LargeObjects, s.Env)
}

// NewRegistry returns a registry holding c, for exposition or testing.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return reg, nil
}
