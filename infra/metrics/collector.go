package metrics

import (
	"context"

	"github.com/kilianp07/vpp/core/events"
	coremetrics "github.com/kilianp07/vpp/core/metrics"
	"github.com/kilianp07/vpp/infra/logger"
	"github.com/kilianp07/vpp/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled or the bus is closed. The
// returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				var err error
				switch e := ev.(type) {
				case events.GenerationEvent:
					err = sink.RecordGeneration(e)
				case events.RunEvent:
					err = sink.RecordRun(e)
				}
				if err != nil {
					log.Errorf("metrics sink error for run %s: %v", ev.RunKey(), err)
				}
			}
		}
	}()
	return done
}
