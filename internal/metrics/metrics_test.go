package metrics

import "testing"

func TestMetrics_SnapshotReflectsCounters(t *testing.T) {
	m := New()
	m.RequestStarted()
	m.RequestStarted()
	m.RequestFinished()
	m.RequestFailed()
	m.NotificationSeen()
	m.BatchSeen()
	m.GatewayForwarded()
	m.CacheHit()
	m.CacheMiss()

	snap := m.Snapshot()
	if snap.RequestsTotal != 2 {
		t.Errorf("RequestsTotal = %d, want 2", snap.RequestsTotal)
	}
	if snap.ActiveRequests != 1 {
		t.Errorf("ActiveRequests = %d, want 1", snap.ActiveRequests)
	}
	if snap.RequestsFailed != 1 || snap.NotificationsTotal != 1 || snap.BatchesTotal != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.CacheHits != 1 || snap.CacheMisses != 1 || snap.GatewayForwarded != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestMetrics_ResetPreservesActiveRequests(t *testing.T) {
	m := New()
	m.RequestStarted()
	m.RequestFailed()

	m.Reset()

	snap := m.Snapshot()
	if snap.RequestsFailed != 0 {
		t.Errorf("expected RequestsFailed reset to 0, got %d", snap.RequestsFailed)
	}
	if snap.ActiveRequests != 1 {
		t.Errorf("expected ActiveRequests to survive reset, got %d", snap.ActiveRequests)
	}
}
