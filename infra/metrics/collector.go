package metrics

import (
	"context"

	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

// StartEventCollector counts the events published on bus until ctx is
// done or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.DispatchEvent], sink *PromSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.SubscribeN(64)
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				sink.busEvents.WithLabelValues(string(ev.Kind)).Inc()
			}
		}
	}()
}
