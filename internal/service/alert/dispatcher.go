package alert

import (
	"context"
	"sync"
	"time"

	"facewatch/internal/logger"
)

// DefaultQueueSize bounds the number of alert events waiting for delivery.
const DefaultQueueSize = 16

// Dispatcher delivers alert events on its own goroutine, at most one per cooldown.
type Dispatcher struct {
	service  Service
	logger   *logger.Logger
	queue    chan Event
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastSent  time.Time
	delivered int
	throttled int
	failed    int
	dropped   int

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher; call Start to begin delivering.
func NewDispatcher(service Service, cooldown time.Duration, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		service:  service,
		logger:   logger,
		queue:    make(chan Event, DefaultQueueSize),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Start launches the delivery worker. It stops when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

// Wait blocks until the delivery worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands an event to the worker without blocking. It returns false when the queue is full.
func (d *Dispatcher) Enqueue(event Event) bool {
	select {
	case d.queue <- event:
		return true
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		d.logger.Warning("Alert queue full - dropping alert for %s", event.Camera)
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	now := d.now()

	d.mu.Lock()
	if !d.lastSent.IsZero() && now.Sub(d.lastSent) < d.cooldown {
		d.throttled++
		d.mu.Unlock()
		return
	}
	d.lastSent = now
	d.mu.Unlock()

	if err := d.service.NotifyUnknownPerson(ctx, event); err != nil {
		d.mu.Lock()
		d.failed++
		d.mu.Unlock()
		d.logger.Error("Failed to deliver alert %s: %v", event.ID, err)
		return
	}

	d.mu.Lock()
	d.delivered++
	d.mu.Unlock()
	d.logger.Info("Alert %s delivered for %s", event.ID, event.Camera)
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Delivered int `json:"delivered"`
	Throttled int `json:"throttled"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
}

// Stats returns the delivery counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Delivered: d.delivered, Throttled: d.throttled, Failed: d.failed, Dropped: d.dropped}
}
