package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

type collectingRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *collectingRecorder) Record(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func TestAuditWriterDrainsOnStop(t *testing.T) {
	rec := &collectingRecorder{}
	w := NewAuditWriter(rec, nil, 16)
	w.Start()

	for i := 0; i < 10; i++ {
		w.Enqueue(domain.AuditLog{Method: "GET", Path: "/api/v1/tickets", Status: 200})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(rec.entries))
	}
}

func TestAuditWriterDropsWhenFull(t *testing.T) {
	rec := &collectingRecorder{}
	w := NewAuditWriter(rec, nil, 1)

	w.Enqueue(domain.AuditLog{RequestID: "a"})
	w.Enqueue(domain.AuditLog{RequestID: "b"})

	w.Start()
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(rec.entries) != 1 || rec.entries[0].RequestID != "a" {
		t.Fatalf("expected only the first entry, got %+v", rec.entries)
	}
}

func TestAuditWriterEnqueueAfterStopIsDropped(t *testing.T) {
	rec := &collectingRecorder{}
	w := NewAuditWriter(rec, nil, 64)
	w.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w.Enqueue(domain.AuditLog{Method: "POST", Path: "/api/v1/tickets"})
			}
		}()
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	wg.Wait()

	w.Enqueue(domain.AuditLog{RequestID: "late"})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, entry := range rec.entries {
		if entry.RequestID == "late" {
			t.Fatalf("entry enqueued after stop was written")
		}
	}
}
