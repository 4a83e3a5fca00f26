package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/llmsender/internal/core/services"
)

func TestEventBus_TaskAndBroadcastDelivery(t *testing.T) {
	bus := services.NewEventBus(discardLogger())

	taskCh, unsubTask := bus.Subscribe("demo")
	defer unsubTask()
	allCh, unsubAll := bus.Subscribe(services.BroadcastKey)
	defer unsubAll()
	otherCh, unsubOther := bus.Subscribe("other")
	defer unsubOther()

	bus.Publish(services.Event{Task: "demo", Type: services.EventTypeFiringStarted, Data: "{}"})

	evt := <-taskCh
	assert.Equal(t, services.EventTypeFiringStarted, evt.Type)
	evt = <-allCh
	assert.Equal(t, "demo", evt.Task)

	select {
	case <-otherCh:
		t.Fatal("subscriber of another task received the event")
	default:
	}
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := services.NewEventBus(discardLogger())

	ch, unsub := bus.Subscribe("demo")
	unsub()

	_, open := <-ch
	require.False(t, open)

	// publishing after unsubscribe must not panic
	bus.Publish(services.Event{Task: "demo", Type: services.EventTypeFiringFinished})
}

func TestEventBus_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	bus := services.NewEventBus(discardLogger())

	_, unsub := bus.Subscribe("demo")
	defer unsub()

	// more events than the channel buffers; Publish must never block
	for i := 0; i < 250; i++ {
		bus.Publish(services.Event{Task: "demo", Type: services.EventTypeFiringStarted})
	}
}
