package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
)

// AuditRecorder persists one audit entry.
type AuditRecorder interface {
	Record(ctx context.Context, entry *domain.AuditLog) error
}

// AuditWriter moves audit writes off the request path.
type AuditWriter struct {
	recorder AuditRecorder
	logger   *zap.Logger
	queue    chan domain.AuditLog
	timeout  time.Duration
	wg       sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewAuditWriter builds a writer with a bounded queue.
func NewAuditWriter(recorder AuditRecorder, logger *zap.Logger, buffer int) *AuditWriter {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditWriter{
		recorder: recorder,
		logger:   logger,
		queue:    make(chan domain.AuditLog, buffer),
		timeout:  5 * time.Second,
	}
}

// Start launches the consumer goroutine.
func (w *AuditWriter) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for entry := range w.queue {
			w.write(entry)
		}
	}()
}

// Enqueue hands an entry to the consumer. Entries are dropped when the queue
// is full or the writer has been stopped.
func (w *AuditWriter) Enqueue(entry domain.AuditLog) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.logger.Warn("audit writer stopped, dropping entry",
			zap.String("request_id", entry.RequestID),
			zap.String("path", entry.Path))
		return
	}
	select {
	case w.queue <- entry:
	default:
		w.logger.Warn("audit queue full, dropping entry",
			zap.String("request_id", entry.RequestID),
			zap.String("path", entry.Path))
	}
}

// Stop drains pending entries and waits for the consumer, up to ctx's deadline.
func (w *AuditWriter) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AuditWriter) write(entry domain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.recorder.Record(ctx, &entry); err != nil {
		w.logger.Error("audit write failed",
			zap.String("request_id", entry.RequestID),
			zap.Error(err))
	}
}
