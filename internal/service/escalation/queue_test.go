package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/pkg/delivery"
)

func TestEventQueueOrdersByTime(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	var q eventQueue
	q.push(event{kind: eventLevelUp, at: base.Add(20 * time.Second)})
	q.push(event{kind: eventEmit, channel: delivery.ChannelSound, at: base})
	q.push(event{kind: eventEmit, channel: delivery.ChannelFlash, at: base.Add(time.Second)})

	next, ok := q.peek()
	require.True(t, ok)
	assert.Equal(t, eventEmit, next.kind)
	assert.Equal(t, delivery.ChannelSound, next.channel)

	due := q.popDue(base.Add(time.Second))
	require.Len(t, due, 2)
	assert.Equal(t, delivery.ChannelSound, due[0].channel)
	assert.Equal(t, delivery.ChannelFlash, due[1].channel)

	// The level tick is still in the future.
	due = q.popDue(base.Add(10 * time.Second))
	assert.Empty(t, due)
}

func TestEventQueueRemoveKind(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	var q eventQueue
	q.push(event{kind: eventEmit, channel: delivery.ChannelSound, at: base})
	q.push(event{kind: eventLevelUp, at: base.Add(20 * time.Second)})
	q.push(event{kind: eventAutoResolve, at: base.Add(time.Hour)})

	q.removeKind(eventEmit, eventLevelUp)

	require.Equal(t, 1, q.Len())
	next, ok := q.peek()
	require.True(t, ok)
	assert.Equal(t, eventAutoResolve, next.kind)

	q.clear()
	_, ok = q.peek()
	assert.False(t, ok)
}
