package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// persistTimeout bounds one store write so a hung store cannot wedge a
// worker forever.
const persistTimeout = 5 * time.Second

// Dispatcher decouples audit persistence from the response path: Submit
// enqueues without blocking, background workers write to the store. When the
// queue is full the record is dropped and counted — backpressure must never
// reach the request.
type Dispatcher struct {
	store  Store
	logger *slog.Logger

	queue chan Record
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(store Store, logger *slog.Logger, queueSize, workers int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 2
	}

	d := &Dispatcher{
		store:  store,
		logger: logger,
		queue:  make(chan Record, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit implements Sink. It never blocks and never errors toward the
// caller; a full queue drops the record with a counter and a warning.
func (d *Dispatcher) Submit(rec Record) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		recordsDropped.Inc()
		return
	}

	select {
	case d.queue <- rec:
		d.mu.Unlock()
		recordsSubmitted.WithLabelValues(string(rec.Kind())).Inc()
	default:
		d.mu.Unlock()
		recordsDropped.Inc()
		d.logger.Warn("audit queue full, record dropped",
			"kind", string(rec.Kind()),
			"trace_id", rec.TraceID(),
		)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for rec := range d.queue {
		d.persist(rec)
	}
}

func (d *Dispatcher) persist(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	switch rec.Kind() {
	case KindAdminAction:
		err = d.store.CreateAdminAction(ctx, rec.AdminAction)
	case KindUserActivity:
		err = d.store.CreateUserActivity(ctx, rec.UserActivity)
	case KindSystemTraffic:
		err = d.store.CreateSystemTraffic(ctx, rec.SystemTraffic)
	}

	if err != nil {
		persistFailures.WithLabelValues(string(rec.Kind())).Inc()
		d.logger.Error("audit record persist failed",
			"kind", string(rec.Kind()),
			"trace_id", rec.TraceID(),
			"error", err.Error(),
		)
		return
	}
	recordsPersisted.WithLabelValues(string(rec.Kind())).Inc()
}

// Close stops accepting records and drains the queue. It returns early with
// the context error if draining outlasts the context.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
