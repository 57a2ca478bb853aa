package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/tile-brawl/internal/eventbus"
	"github.com/annel0/tile-brawl/internal/logging"
)

const (
	publishTimeout = time.Second
	highPriority   = 5
)

// outbox очередь событий между тиком и шиной. Тик только кладёт конверты
// и никогда не ждёт; публикует одна горутина в порядке поступления.
type outbox struct {
	bus     eventbus.EventBus
	queue   chan *eventbus.Envelope
	dropped func()
	logger  *logging.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newOutbox(bus eventbus.EventBus, size int, dropped func(), logger *logging.Logger) *outbox {
	if size <= 0 {
		size = 1
	}
	if dropped == nil {
		dropped = func() {}
	}
	o := &outbox{
		bus:     bus,
		queue:   make(chan *eventbus.Envelope, size),
		dropped: dropped,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

// offer неблокирующе ставит конверт в очередь. Низкий приоритет отбрасывается
// уже при заполнении на три четверти, высокий только при полной очереди.
func (o *outbox) offer(env *eventbus.Envelope) bool {
	if o.closed.Load() {
		return false
	}
	if env.Priority < highPriority && len(o.queue) >= cap(o.queue)*3/4 && cap(o.queue) > 1 {
		o.dropped()
		return false
	}
	select {
	case o.queue <- env:
		return true
	default:
		o.dropped()
		return false
	}
}

func (o *outbox) run() {
	defer close(o.done)
	for env := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := o.bus.Publish(ctx, env); err != nil {
			o.logger.Debug("📭 Событие %s не опубликовано: %v", env.EventType, err)
		}
		cancel()
	}
}

// close публикует оставшиеся события и останавливает горутину
func (o *outbox) close() {
	o.closeOnce.Do(func() {
		o.closed.Store(true)
		close(o.queue)
	})
	<-o.done
}
