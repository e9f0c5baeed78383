package application

import (
	"context"

	"safetyband-cloud/internal/eventing"
	"safetyband-cloud/internal/exposure/application/events"
)

// WireExposureEventBus registers the grouping handler on the event bus. Grouping
// requests carry no id of their own and a repeated run finds nothing pending, so
// the handler is not wrapped with a processed store.
func WireExposureEventBus(bus eventing.EventBus, grouping *GroupingService) {
	if bus == nil || grouping == nil {
		return
	}

	eventing.Subscribe(bus, eventing.EventTypeOf[events.GroupingRequested](), "exposure.grouping", func(ctx context.Context, event any) error {
		evt, ok := event.(events.GroupingRequested)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		return grouping.HandleGroupingRequested(ctx, evt)
	}, nil)
}
