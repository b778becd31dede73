package orders

import (
	"runtime/debug"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/urbangulal/urbangulal/internal/domain"
	"go.uber.org/zap"
)

const (
	TopicOrderCreated = "order:created"
	TopicOrderUpdated = "order:updated"
)

// OrderEvent is published after an order mutation has been committed.
type OrderEvent struct {
	Topic         string
	Order         domain.Order
	PrevStatus    string
	StatusChanged bool
	ItemsChanged  bool
}

// Hooks fans committed order events out to subscribers. Each subscriber
// runs asynchronously and a panic in one never reaches the others or the
// publisher.
type Hooks struct {
	bus EventBus.Bus
}

func NewHooks() *Hooks {
	return &Hooks{bus: EventBus.New()}
}

// Subscribe registers fn for topic under a name used in logs.
func (h *Hooks) Subscribe(topic, name string, fn func(OrderEvent)) error {
	return h.bus.SubscribeAsync(topic, func(ev OrderEvent) {
		defer func() {
			if err := recover(); err != nil {
				zap.L().Error("order hook panic",
					zap.String("hook", name),
					zap.String("topic", topic),
					zap.Int64("order_id", ev.Order.OrderID),
					zap.Any("error", err),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		fn(ev)
	}, false)
}

func (h *Hooks) OnCreated(name string, fn func(OrderEvent)) error {
	return h.Subscribe(TopicOrderCreated, name, fn)
}

func (h *Hooks) OnUpdated(name string, fn func(OrderEvent)) error {
	return h.Subscribe(TopicOrderUpdated, name, fn)
}

func (h *Hooks) publish(ev OrderEvent) {
	if h == nil {
		return
	}
	h.bus.Publish(ev.Topic, ev)
}

// Wait blocks until all in-flight hook calls return.
func (h *Hooks) Wait() {
	if h == nil {
		return
	}
	h.bus.WaitAsync()
}
