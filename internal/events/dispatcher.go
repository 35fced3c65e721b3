package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/internal/utils"
	logger "github.com/Gopher0727/occult/middleware/log"
)

// Publisher delivers an encoded event. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// IDispatcher hands committed events to the notification collaborator.
// Dispatch never fails the caller: delivery problems are logged.
type IDispatcher interface {
	Dispatch(ctx context.Context, events ...*Event)
}

// Dispatcher publishes events from a worker pool so callers never wait on
// the broker.
type Dispatcher struct {
	pub     Publisher
	pool    *utils.WorkerPool
	log     *logger.Logger
	timeout time.Duration
}

// NewDispatcher uses pool for delivery. The pool must already be started.
func NewDispatcher(pub Publisher, pool *utils.WorkerPool, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{pub: pub, pool: pool, log: log, timeout: 10 * time.Second}
}

func (d *Dispatcher) Dispatch(ctx context.Context, events ...*Event) {
	for _, ev := range events {
		d.dispatch(ctx, ev)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev *Event) {
	log := d.log.WithContext(ctx).WithFields(zap.String("event", string(ev.Type)))

	payload, err := Encode(ev)
	if err != nil {
		log.Warn("failed to encode event", logger.Err(err))
		return
	}
	key := ev.Key()

	// delivery outlives the request that produced the event
	base := context.WithoutCancel(ctx)
	submitted := d.pool.TrySubmit(func() {
		pctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		if err := d.pub.Publish(pctx, key, payload); err != nil {
			log.Warn("failed to publish event", logger.Err(err))
			return
		}
		log.Debug("event published")
	})
	if !submitted {
		log.Warn("event queue full, dropping event")
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Dispatch(context.Context, ...*Event) {}
