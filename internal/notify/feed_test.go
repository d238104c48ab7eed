package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNameScopedPerPulseAndTable(t *testing.T) {
	assert.Equal(t, "pulse:p-1:availability", ChannelName("p-1", TableAvailability))
	assert.Equal(t, "pulse:p-1:pulses", ChannelName("p-1", TablePulses))
	assert.NotEqual(t, ChannelName("p-1", TableParticipants), ChannelName("p-2", TableParticipants))
}

func TestEventRoundTrip(t *testing.T) {
	ev := Event{PulseID: "p-1", Table: TableAvailability, Action: ActionDelete}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, ev, decoded)
}
