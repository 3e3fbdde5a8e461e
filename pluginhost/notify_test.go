package pluginhost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyHub_BroadcastReachesAllListeners(t *testing.T) {
	h := newNotifyHub()

	ch1, unsub1 := h.Subscribe()
	defer unsub1()
	ch2, unsub2 := h.Subscribe()
	defer unsub2()

	h.broadcast(ListChangedEvent{Path: "plugin_x.so", Loaded: true})

	for _, ch := range []<-chan ListChangedEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "plugin_x.so", ev.Path)
			assert.True(t, ev.Loaded)
		case <-time.After(time.Second):
			t.Fatal("listener did not receive broadcast")
		}
	}
}

func TestNotifyHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := newNotifyHub()
	ch, unsub := h.Subscribe()
	unsub()

	h.broadcast(ListChangedEvent{Path: "plugin_y.so"})

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
}

func TestNotifyHub_FullListenerBufferDropsRatherThanBlocks(t *testing.T) {
	h := newNotifyHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	for i := 0; i < 100; i++ {
		h.broadcast(ListChangedEvent{Path: "plugin_z.so"})
	}

	require.NotPanics(t, func() {
		h.broadcast(ListChangedEvent{Path: "plugin_final.so"})
	})
	assert.NotEmpty(t, ch)
}
