package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
)

// ring is a bounded FIFO. When full, the oldest event is dropped.
type ring struct {
	mu       sync.Mutex
	events   []models.DomainEvent
	head     int // next write position
	tail     int // next read position
	count    int
	dropped  int64
	capacity int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ring{events: make([]models.DomainEvent, capacity), capacity: capacity}
}

// enqueue reports whether an older event was dropped to make room.
func (b *ring) enqueue(e models.DomainEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := false
	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}
	b.events[b.head] = e
	b.head = (b.head + 1) % b.capacity
	b.count++
	return dropped
}

func (b *ring) dequeueBatch(n int) []models.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	out := make([]models.DomainEvent, n)
	for i := 0; i < n; i++ {
		out[i] = b.events[b.tail]
		b.events[b.tail] = models.DomainEvent{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *ring) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Buffered decouples callers from a slow sink. Publish only enqueues; Run
// drains the buffer in batches. Events that fail delivery are logged and
// counted, not retried here: wrap next in Resilient for retries.
type Buffered struct {
	next      ports.EventPublisher
	buf       *ring
	batchSize int
	interval  time.Duration
	metrics   *Metrics
	logger    *slog.Logger
	wake      chan struct{}
}

type BufferedOption func(*Buffered)

func WithBatchSize(n int) BufferedOption {
	return func(b *Buffered) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) BufferedOption {
	return func(b *Buffered) {
		if d > 0 {
			b.interval = d
		}
	}
}

func WithBufferMetrics(m *Metrics) BufferedOption {
	return func(b *Buffered) { b.metrics = m }
}

func WithBufferLogger(logger *slog.Logger) BufferedOption {
	return func(b *Buffered) { b.logger = logger }
}

func NewBuffered(next ports.EventPublisher, capacity int, opts ...BufferedOption) *Buffered {
	b := &Buffered{
		next:      next,
		buf:       newRing(capacity),
		batchSize: 50,
		interval:  500 * time.Millisecond,
		logger:    slog.Default(),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffered) Publish(_ context.Context, e models.DomainEvent) error {
	if b.buf.enqueue(e) {
		b.logger.Warn("event buffer full, dropped oldest event")
		if b.metrics != nil {
			b.metrics.IncrementBufferDropped()
		}
	}
	if b.buf.len() >= b.batchSize {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Len reports the number of buffered events.
func (b *Buffered) Len() int { return b.buf.len() }

// Run flushes until ctx is cancelled, then drains what is left with a
// fresh context bounded by one interval per batch.
func (b *Buffered) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.drain()
			return nil
		case <-ticker.C:
		case <-b.wake:
		}
		b.flush(ctx)
	}
}

func (b *Buffered) flush(ctx context.Context) {
	for {
		batch := b.buf.dequeueBatch(b.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			b.deliver(ctx, e)
		}
	}
}

func (b *Buffered) drain() {
	for b.buf.len() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), b.interval)
		for _, e := range b.buf.dequeueBatch(b.batchSize) {
			b.deliver(ctx, e)
		}
		cancel()
	}
}

func (b *Buffered) deliver(ctx context.Context, e models.DomainEvent) {
	err := b.next.Publish(ctx, e)
	if b.metrics != nil {
		b.metrics.ObservePublish("buffered", err)
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "buffered event not delivered",
			"event_id", e.ID,
			"event_type", string(e.Type),
			"error", err,
		)
	}
}

var _ ports.EventPublisher = (*Buffered)(nil)
