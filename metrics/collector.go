// Package metrics provides per-client call metrics.
//
// The Collector accumulates counters across the calls of one client. It is a
// leaf package with no internal dependencies; transport failure kinds are
// plain strings for that reason.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Call lifecycle
	CallsStarted         int64
	CallsSucceeded       int64
	CallsRemoteFailed    int64
	CallsTransportFailed int64
	TransportByKind      map[string]int64

	// Child process
	SpawnSuccess int64
	SpawnFailure int64
	RelayedLines int64
	DecodeErrors int64

	// Artifact store
	ArtifactWriteSuccess int64
	ArtifactWriteFailure int64
	CleanupFailures      int64
	LargeObjects         int64

	// Dimensions (informational, set at construction)
	Env            string
	Launcher       string
	StorageBackend string
}

// Collector accumulates call metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	callsStarted         int64
	callsSucceeded       int64
	callsRemoteFailed    int64
	callsTransportFailed int64
	transportByKind      map[string]int64

	spawnSuccess int64
	spawnFailure int64
	relayedLines int64
	decodeErrors int64

	artifactWriteSuccess int64
	artifactWriteFailure int64
	cleanupFailures      int64
	largeObjects         int64

	env            string
	launcher       string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(env, launcher, storageBackend string) *Collector {
	return &Collector{
		transportByKind: make(map[string]int64),
		env:             env,
		launcher:        launcher,
		storageBackend:  storageBackend,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Call lifecycle ---

// IncCallStarted records a call start.
func (c *Collector) IncCallStarted() {
	if c == nil {
		return
	}
	c.inc(&c.callsStarted)
}

// IncCallSucceeded records a call that delivered a result.
func (c *Collector) IncCallSucceeded() {
	if c == nil {
		return
	}
	c.inc(&c.callsSucceeded)
}

// IncCallRemoteFailed records a delivered remote error.
func (c *Collector) IncCallRemoteFailed() {
	if c == nil {
		return
	}
	c.inc(&c.callsRemoteFailed)
}

// IncCallTransportFailed records a transport failure of the given kind.
func (c *Collector) IncCallTransportFailed(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callsTransportFailed++
	c.transportByKind[kind]++
	c.mu.Unlock()
}

// --- Child process ---

// IncSpawnSuccess records a started child.
func (c *Collector) IncSpawnSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.spawnSuccess)
}

// IncSpawnFailure records a child that could not be started.
func (c *Collector) IncSpawnFailure() {
	if c == nil {
		return
	}
	c.inc(&c.spawnFailure)
}

// IncRelayedLine records one child output line relayed to the caller.
func (c *Collector) IncRelayedLine() {
	if c == nil {
		return
	}
	c.inc(&c.relayedLines)
}

// IncDecodeErrors records an unreadable result artifact.
func (c *Collector) IncDecodeErrors() {
	if c == nil {
		return
	}
	c.inc(&c.decodeErrors)
}

// --- Artifact store ---

// IncArtifactWriteSuccess records a written input artifact.
func (c *Collector) IncArtifactWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.artifactWriteSuccess)
}

// IncArtifactWriteFailure records a failed input artifact write.
func (c *Collector) IncArtifactWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.artifactWriteFailure)
}

// IncCleanupFailure records a swallowed cleanup error.
func (c *Collector) IncCleanupFailure() {
	if c == nil {
		return
	}
	c.inc(&c.cleanupFailures)
}

// IncLargeObject records an externalized large-object argument.
func (c *Collector) IncLargeObject() {
	if c == nil {
		return
	}
	c.inc(&c.largeObjects)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.transportByKind))
	for k, v := range c.transportByKind {
		byKind[k] = v
	}

	return Snapshot{
		CallsStarted:         c.callsStarted,
		CallsSucceeded:       c.callsSucceeded,
		CallsRemoteFailed:    c.callsRemoteFailed,
		CallsTransportFailed: c.callsTransportFailed,
		TransportByKind:      byKind,

		SpawnSuccess: c.spawnSuccess,
		SpawnFailure: c.spawnFailure,
		RelayedLines: c.relayedLines,
		DecodeErrors: c.decodeErrors,

		ArtifactWriteSuccess: c.artifactWriteSuccess,
		ArtifactWriteFailure: c.artifactWriteFailure,
		CleanupFailures:      c.cleanupFailures,
		LargeObjects:         c.largeObjects,

		Env:            c.env,
		Launcher:       c.launcher,
		StorageBackend: c.storageBackend,
	}
}
