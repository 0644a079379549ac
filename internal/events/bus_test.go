package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusSubscribeAndEmit(t *testing.T) {
	bus := NewBus()

	var received []*Event
	bus.Subscribe(TriggerDetected, func(event *Event) {
		received = append(received, event)
	})

	bus.Emit(TriggerDetected, "screening", map[string]interface{}{
		"trigger_id": "t-1",
		"isin":       "US0378331005",
	})
	bus.Emit(OverrideApplied, "ledger", nil) // different type, not delivered

	require.Len(t, received, 1)
	assert.Equal(t, TriggerDetected, received[0].Type)
	assert.Equal(t, "screening", received[0].Module)
	assert.Equal(t, "t-1", received[0].Data["trigger_id"])
}

func TestBusSubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus()

	var count int
	bus.SubscribeAll(func(event *Event) { count++ })

	bus.Emit(TriggerDetected, "screening", nil)
	bus.Emit(OverrideApplied, "ledger", nil)
	bus.Emit(StandardPublished, "standards", nil)

	assert.Equal(t, 3, count)
}

func TestManagerEmitTypedRoundTrip(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(OverrideApplied, func(event *Event) { got = event })

	manager.EmitTyped(OverrideApplied, "ledger", &OverrideAppliedData{
		OverrideID: "o-1",
		ResultID:   "r-1",
		HoldingID:  "h-1",
		NewValue:   512.25,
		Author:     "analyst@example.com",
	})

	require.NotNil(t, got)
	typed := got.GetTypedData()
	require.NotNil(t, typed)
	data, ok := typed.(*OverrideAppliedData)
	require.True(t, ok)
	assert.Equal(t, "r-1", data.ResultID)
	assert.Equal(t, 512.25, data.NewValue)
}
