package pool

import "testing"

func TestObjectPool_AcquireReleaseReusesItems(t *testing.T) {
	op := NewObjectPool(2)

	h1 := op.AcquireNow()
	h1.Item().Data = []byte("a")
	h1.Release()

	h2 := op.AcquireNow()
	if len(h2.Item().Data) != 0 {
		t.Fatalf("expected a freshly acquired item to be reset, got %q", h2.Item().Data)
	}
	h2.Release()
}

func TestObjectPool_LenTracksAcquired(t *testing.T) {
	op := NewObjectPool(4)

	if op.Len() != 0 {
		t.Fatalf("expected 0 acquired initially, got %d", op.Len())
	}
	h := op.AcquireNow()
	if op.Len() != 1 {
		t.Fatalf("expected 1 acquired after AcquireNow, got %d", op.Len())
	}
	h.Release()
	if op.Len() != 0 {
		t.Fatalf("expected 0 acquired after release, got %d", op.Len())
	}
}
