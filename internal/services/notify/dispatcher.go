package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fastprodman/walletledger/internal/metrics"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultSendTimeout = 5 * time.Second
)

// Dispatcher queues notifications and delivers them to a Sink from background
// workers. Notify never blocks: when the queue is full the notification is
// dropped and logged.
type Dispatcher struct {
	sink        Sink
	logger      *slog.Logger
	sendTimeout time.Duration

	queue chan Notification
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ Notifier = (*Dispatcher)(nil)

type DispatcherOption func(*Dispatcher)

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Notification, n)
		}
	}
}

func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.sendTimeout = timeout }
}

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher starts workers goroutines delivering to sink.
func NewDispatcher(sink Sink, workers int, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:        sink,
		logger:      slog.Default(),
		sendTimeout: defaultSendTimeout,
		queue:       make(chan Notification, defaultQueueSize),
	}

	for _, opt := range opts {
		opt(d)
	}

	if workers <= 0 {
		workers = defaultWorkers
	}

	d.wg.Add(workers)
	for range workers {
		go d.work()
	}

	return d
}

// Notify enqueues n. The caller's ctx only bounds enqueueing; delivery runs
// detached with its own timeout.
func (d *Dispatcher) Notify(_ context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, ErrDispatcherClosed)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.drop(n, errors.New("queue full"))
	}
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to end.
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
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	defer func() {
		r := recover()
		if r != nil {
			metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "panic").Inc()
			d.logger.Error("panic in notification sink", "kind", n.Kind, "panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	err := d.sink.Send(ctx, n)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "error").Inc()
		d.logger.Warn("notification delivery failed",
			"kind", n.Kind,
			"recipient", n.Recipient,
			"error", err,
		)

		return
	}

	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
}

func (d *Dispatcher) drop(n Notification, reason error) {
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
	d.logger.Warn("notification dropped", "kind", n.Kind, "recipient", n.Recipient, "reason", reason)
}
