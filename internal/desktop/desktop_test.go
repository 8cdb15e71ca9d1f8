package desktop

import (
	"context"
	"testing"

	"github.com/godbus/dbus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Notification{ID: "a-1", Title: "Bug", Body: "o/r"}))
	n.Withdraw("a-1")

	entries := recorded.All()
	require.Len(t, entries, 2)
	require.Equal(t, "Bug", entries[0].ContextMap()["title"])
	require.Equal(t, "a-1", entries[1].ContextMap()["id"])
}

func TestRouteActionSignals(t *testing.T) {
	d := &DBusNotifier{
		log:       zap.NewNop(),
		serverIDs: map[string]uint32{"a-1": 7},
		actions: map[uint32]map[string]Action{
			7: {
				defaultActionKey: {Name: ActionOpen, Target: []string{"a-1", "https://x"}},
				"button-0":       {Name: ActionMarkRead, Target: []string{"a-1"}},
			},
		},
	}

	action, ok := d.route(&dbus.Signal{Name: actionSignal, Body: []interface{}{uint32(7), "button-0"}})
	require.True(t, ok)
	require.Equal(t, ActionMarkRead, action.Name)

	action, ok = d.route(&dbus.Signal{Name: actionSignal, Body: []interface{}{uint32(7), "default"}})
	require.True(t, ok)
	require.Equal(t, []string{"a-1", "https://x"}, action.Target)

	_, ok = d.route(&dbus.Signal{Name: actionSignal, Body: []interface{}{uint32(8), "default"}})
	require.False(t, ok)

	_, ok = d.route(&dbus.Signal{Name: closedSignal, Body: []interface{}{uint32(7), uint32(2)}})
	require.False(t, ok)
	require.Empty(t, d.serverIDs)
	require.Empty(t, d.actions)
}

func TestOpenCommand(t *testing.T) {
	name, args := openCommand("linux", "https://codeberg.org")
	require.Equal(t, "xdg-open", name)
	require.Equal(t, []string{"https://codeberg.org"}, args)

	name, _ = openCommand("darwin", "https://codeberg.org")
	require.Equal(t, "open", name)
}
