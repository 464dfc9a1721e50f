package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/heatserve/internal/logger"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultMaxPending    = 1024
)

// Batcher is a write-behind queue in front of a Store. Enqueue only touches
// an in-memory map; a background goroutine flushes on an interval, when the
// pending set grows past a threshold, and once more on Close.
//
// Heat never decreases during a run, so pending entries for the same term
// coalesce to the highest heat seen. This makes the order in which
// concurrent requests enqueue irrelevant.
type Batcher struct {
	store      Store
	interval   time.Duration
	maxPending int
	limiter    *rate.Limiter
	logger     *log.Logger

	mu      sync.Mutex
	pending map[string]int
	closed  bool

	ctx       context.Context
	cancel    context.CancelFunc
	kick      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closeErr  error

	flushed  atomic.Int64
	failures atomic.Int64
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithFlushInterval sets how often pending heats are written.
func WithFlushInterval(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithMaxPending flushes early once n distinct terms are waiting.
func WithMaxPending(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.maxPending = n
		}
	}
}

// WithFlushRate caps background flushes per second. Zero or less disables it.
func WithFlushRate(perSecond float64, burst int) BatcherOption {
	return func(b *Batcher) {
		if perSecond <= 0 {
			b.limiter = nil
			return
		}
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithBatcherLogger replaces the default "store" logger.
func WithBatcherLogger(l *log.Logger) BatcherOption {
	return func(b *Batcher) {
		b.logger = l
	}
}

// NewBatcher starts the flush loop. Close must be called to stop it.
func NewBatcher(st Store, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		store:      st,
		interval:   defaultFlushInterval,
		maxPending: defaultMaxPending,
		pending:    make(map[string]int),
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.New("store")
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	go b.run()
	return b
}

// Enqueue records the latest heat of term for the next flush. It never blocks
// while the batcher is open. After Close the heat is written straight to the
// store instead, and a failed write is logged and counted.
func (b *Batcher) Enqueue(term string, heat int) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.writeLate(term, heat)
		return
	}
	if heat > b.pending[term] {
		b.pending[term] = heat
	}
	n := len(b.pending)
	b.mu.Unlock()

	if n >= b.maxPending {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

func (b *Batcher) writeLate(term string, heat int) {
	if err := b.store.UpsertHeat(context.Background(), term, heat); err != nil {
		b.failures.Add(1)
		b.logger.Warn("heat arrived after close and was dropped", "term", term, "heat", heat, "err", err)
		return
	}
	b.flushed.Add(1)
}

func (b *Batcher) run() {
	defer close(b.stopped)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
		case <-b.kick:
		}
		if err := b.flush(b.ctx, true); err != nil && b.ctx.Err() == nil {
			b.logger.Warn("flush failed, keeping batch for retry", "err", err)
		}
	}
}

// Flush writes everything pending now, ignoring the rate limit.
func (b *Batcher) Flush(ctx context.Context) error {
	return b.flush(ctx, false)
}

func (b *Batcher) flush(ctx context.Context, limited bool) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.pending
	b.pending = make(map[string]int, len(batch))
	b.mu.Unlock()

	if limited && b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			b.requeue(batch)
			return err
		}
	}

	records := make([]Record, 0, len(batch))
	for term, heat := range batch {
		records = append(records, Record{Term: term, Heat: heat})
	}
	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.Term, b.Term) })

	if err := b.store.UpsertMany(ctx, records); err != nil {
		b.failures.Add(1)
		b.requeue(batch)
		return err
	}
	b.flushed.Add(int64(len(records)))
	b.logger.Debug("flushed heats", "records", len(records))
	return nil
}

func (b *Batcher) requeue(batch map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for term, heat := range batch {
		if heat > b.pending[term] {
			b.pending[term] = heat
		}
	}
}

// Pending returns the number of terms waiting to be written.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stats reports counters in the same shape as the index stats.
func (b *Batcher) Stats() map[string]int {
	return map[string]int{
		"pendingHeats":  b.Pending(),
		"flushedHeats":  int(b.flushed.Load()),
		"flushFailures": int(b.failures.Load()),
	}
}

// Close stops the flush loop and writes whatever is still pending.
// It does not close the underlying store.
func (b *Batcher) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()
		close(b.done)
		<-b.stopped
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		b.closeErr = b.flush(context.Background(), false)
	})
	return b.closeErr
}
