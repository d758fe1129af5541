package queue

import (
	"context"
	"hash/fnv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes session events to a fixed set of workers using consistent
// hashing on the browser id, so the events of one browser are stored in the
// order they happened.
type Dispatcher struct {
	workers []chan domain.SessionEvent
	service ports.AuditService
	dropped atomic.Uint64
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.SessionEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SessionEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record hands an event to the worker responsible for its browser. It never
// blocks: when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Record(event domain.SessionEvent) {
	select {
	case d.workers[d.shardIndex(event.BrowserID)] <- event:
	default:
		d.dropped.Add(1)
		d.log.Warn().
			Str("browser_id", event.BrowserID).
			Str("kind", string(event.Kind)).
			Msg("audit queue full, event dropped")
	}
}

// Depth reports the number of events waiting across all workers.
func (d *Dispatcher) Depth() int {
	n := 0
	for _, ch := range d.workers {
		n += len(ch)
	}
	return n
}

// Dropped reports how many events were discarded because a queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// shardIndex maps a browser id deterministically to a worker index.
func (d *Dispatcher) shardIndex(browserID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(browserID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if err := d.service.Process(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("browser_id", event.BrowserID).
					Str("kind", string(event.Kind)).
					Int("worker_id", id).
					Msg("session event not stored")
			}
		}
	}
}
