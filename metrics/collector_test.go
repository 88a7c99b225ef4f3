package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("ml", "conda", "fs")

	c.IncCallStarted()
	c.IncCallStarted()
	c.IncCallSucceeded()
	c.IncCallRemoteFailed()
	c.IncCallTransportFailed("exit")
	c.IncCallTransportFailed("exit")
	c.IncCallTransportFailed("spawn")
	c.IncSpawnSuccess()
	c.IncSpawnFailure()
	c.IncRelayedLine()
	c.IncRelayedLine()
	c.IncDecodeErrors()
	c.IncArtifactWriteSuccess()
	c.IncArtifactWriteFailure()
	c.IncCleanupFailure()
	c.IncLargeObject()

	s := c.Snapshot()

	if s.CallsStarted != 2 {
		t.Errorf("CallsStarted = %d, want 2", s.CallsStarted)
	}
	if s.CallsSucceeded != 1 {
		t.Errorf("CallsSucceeded = %d, want 1", s.CallsSucceeded)
	}
	if s.CallsRemoteFailed != 1 {
		t.Errorf("CallsRemoteFailed = %d, want 1", s.CallsRemoteFailed)
	}
	if s.CallsTransportFailed != 3 {
		t.Errorf("CallsTransportFailed = %d, want 3", s.CallsTransportFailed)
	}
	if s.TransportByKind["exit"] != 2 || s.TransportByKind["spawn"] != 1 {
		t.Errorf("TransportByKind = %v", s.TransportByKind)
	}
	if s.SpawnSuccess != 1 || s.SpawnFailure != 1 {
		t.Errorf("Spawn = %d/%d, want 1/1", s.SpawnSuccess, s.SpawnFailure)
	}
	if s.RelayedLines != 2 {
		t.Errorf("RelayedLines = %d, want 2", s.RelayedLines)
	}
	if s.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", s.DecodeErrors)
	}
	if s.ArtifactWriteSuccess != 1 || s.ArtifactWriteFailure != 1 {
		t.Errorf("ArtifactWrite = %d/%d, want 1/1", s.ArtifactWriteSuccess, s.ArtifactWriteFailure)
	}
	if s.CleanupFailures != 1 {
		t.Errorf("CleanupFailures = %d, want 1", s.CleanupFailures)
	}
	if s.LargeObjects != 1 {
		t.Errorf("LargeObjects = %d, want 1", s.LargeObjects)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("ml", "conda", "memory").Snapshot()
	if s.Env != "ml" {
		t.Errorf("Env = %q, want %q", s.Env, "ml")
	}
	if s.Launcher != "conda" {
		t.Errorf("Launcher = %q, want %q", s.Launcher, "conda")
	}
	if s.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "memory")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("ml", "conda", "fs")
	c.IncCallStarted()
	c.IncCallTransportFailed("exit")

	s1 := c.Snapshot()

	c.IncCallSucceeded()
	c.IncCallTransportFailed("exit")

	if s1.CallsSucceeded != 0 {
		t.Errorf("s1.CallsSucceeded = %d, want 0 (snapshot should be frozen)", s1.CallsSucceeded)
	}
	if s1.TransportByKind["exit"] != 1 {
		t.Errorf("s1.TransportByKind[exit] = %d, want 1 (snapshot should be frozen)", s1.TransportByKind["exit"])
	}

	s1.TransportByKind["injected"] = 1
	s2 := c.Snapshot()
	if _, exists := s2.TransportByKind["injected"]; exists {
		t.Error("collector should be isolated from snapshot mutation")
	}
	if s2.TransportByKind["exit"] != 2 {
		t.Errorf("s2.TransportByKind[exit] = %d, want 2", s2.TransportByKind["exit"])
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncCallStarted()
	c.IncCallSucceeded()
	c.IncCallRemoteFailed()
	c.IncCallTransportFailed("exit")
	c.IncSpawnSuccess()
	c.IncSpawnFailure()
	c.IncRelayedLine()
	c.IncDecodeErrors()
	c.IncArtifactWriteSuccess()
	c.IncArtifactWriteFailure()
	c.IncCleanupFailure()
	c.IncLargeObject()

	s := c.Snapshot()
	if s.CallsStarted != 0 {
		t.Errorf("nil collector snapshot CallsStarted = %d, want 0", s.CallsStarted)
	}
	if s.TransportByKind != nil {
		t.Errorf("nil collector snapshot TransportByKind should be nil, got %v", s.TransportByKind)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("ml", "conda", "fs")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncCallStarted()
				c.IncRelayedLine()
				c.IncCallTransportFailed("exit")
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.CallsStarted != want {
		t.Errorf("CallsStarted = %d, want %d", s.CallsStarted, want)
	}
	if s.RelayedLines != want {
		t.Errorf("RelayedLines = %d, want %d", s.RelayedLines, want)
	}
	if s.TransportByKind["exit"] != want {
		t.Errorf("TransportByKind[exit] = %d, want %d", s.TransportByKind["exit"], want)
	}
}
