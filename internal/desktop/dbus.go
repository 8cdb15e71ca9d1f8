package desktop

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/godbus/dbus"
	"go.uber.org/zap"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")

	notifyMethod     = notificationsName + ".Notify"
	closeMethod      = notificationsName + ".CloseNotification"
	actionSignal     = notificationsName + ".ActionInvoked"
	closedSignal     = notificationsName + ".NotificationClosed"
	defaultActionKey = "default"
)

// DBusNotifier sends notifications through the freedesktop notification
// service on the session bus.
type DBusNotifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string
	log     *zap.Logger

	mu sync.Mutex
	// serverIDs maps correlation ids to the server's notification ids.
	serverIDs map[string]uint32
	// actions maps server ids to the actions keyed by action key.
	actions map[uint32]map[string]Action
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier(appName string, log *zap.Logger) (*DBusNotifier, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}

	return &DBusNotifier{
		conn:      conn,
		obj:       conn.Object(notificationsName, notificationsPath),
		appName:   appName,
		log:       log,
		serverIDs: make(map[string]uint32),
		actions:   make(map[uint32]map[string]Action),
	}, nil
}

// Send implements Notifier.
func (d *DBusNotifier) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keyed := map[string]Action{defaultActionKey: n.Default}
	actions := []string{defaultActionKey, ""}
	for i, b := range n.Buttons {
		key := "button-" + strconv.Itoa(i)
		keyed[key] = b.Action
		actions = append(actions, key, b.Label)
	}

	d.mu.Lock()
	replaces := d.serverIDs[n.ID]
	d.mu.Unlock()

	hints := map[string]dbus.Variant{
		"desktop-entry": dbus.MakeVariant(d.appName),
	}

	var serverID uint32
	call := d.obj.Call(notifyMethod, 0,
		d.appName, replaces, n.Icon, n.Title, n.Body,
		actions, hints, int32(-1),
	)
	if err := call.Store(&serverID); err != nil {
		return fmt.Errorf("sending notification %s: %w", n.ID, err)
	}

	d.mu.Lock()
	if replaces != 0 && replaces != serverID {
		delete(d.actions, replaces)
	}
	d.serverIDs[n.ID] = serverID
	d.actions[serverID] = keyed
	d.mu.Unlock()

	return nil
}

// Withdraw implements Notifier.
func (d *DBusNotifier) Withdraw(id string) {
	d.mu.Lock()
	serverID, ok := d.serverIDs[id]
	delete(d.serverIDs, id)
	delete(d.actions, serverID)
	d.mu.Unlock()

	if !ok {
		return
	}
	if call := d.obj.Call(closeMethod, 0, serverID); call.Err != nil {
		d.log.Debug("closing notification", zap.String("id", id), zap.Error(call.Err))
	}
}

// Listen dispatches activated actions to handler until ctx is done.
func (d *DBusNotifier) Listen(ctx context.Context, handler ActionHandler) error {
	for _, member := range []string{"ActionInvoked", "NotificationClosed"} {
		rule := fmt.Sprintf(
			"type='signal',interface='%s',member='%s'",
			notificationsName, member,
		)
		call := d.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule)
		if call.Err != nil {
			return fmt.Errorf("subscribing to %s: %w", member, call.Err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	d.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if action, ok := d.route(sig); ok {
				handler(action)
			}
		}
	}
}

// route resolves a signal into an action. Closed notifications are
// forgotten.
func (d *DBusNotifier) route(sig *dbus.Signal) (Action, bool) {
	if sig == nil || len(sig.Body) < 2 {
		return Action{}, false
	}
	serverID, ok := sig.Body[0].(uint32)
	if !ok {
		return Action{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch sig.Name {
	case actionSignal:
		key, ok := sig.Body[1].(string)
		if !ok {
			return Action{}, false
		}
		action, ok := d.actions[serverID][key]
		return action, ok
	case closedSignal:
		delete(d.actions, serverID)
		for id, sid := range d.serverIDs {
			if sid == serverID {
				delete(d.serverIDs, id)
			}
		}
	}
	return Action{}, false
}
