package model

import "sync"

// Change describes a mutation of a NotificationList in the usual
// list-model form: at Position, Removed items were dropped and Added
// items were inserted.
type Change struct {
	Position int
	Removed  int
	Added    int
}

// NotificationList is the ordered, observable collection of current
// notifications. It is safe for concurrent use. Subscribers are called
// synchronously after the mutation, outside the lock.
type NotificationList struct {
	mu      sync.RWMutex
	items   []Notification
	subs    map[int]func(Change)
	nextSub int
}

// NewNotificationList returns an empty list.
func NewNotificationList() *NotificationList {
	return &NotificationList{subs: make(map[int]func(Change))}
}

// Subscribe registers fn for change events and returns a function that
// removes the subscription.
func (l *NotificationList) Subscribe(fn func(Change)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subs == nil {
		l.subs = make(map[int]func(Change))
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Clear removes every item.
func (l *NotificationList) Clear() {
	l.mu.Lock()
	removed := len(l.items)
	l.items = nil
	subs := l.subscribers()
	l.mu.Unlock()

	emit(subs, Change{Position: 0, Removed: removed})
}

// Append adds n at the end.
func (l *NotificationList) Append(n Notification) {
	l.mu.Lock()
	l.items = append(l.items, n)
	pos := len(l.items) - 1
	subs := l.subscribers()
	l.mu.Unlock()

	emit(subs, Change{Position: pos, Added: 1})
}

// Replace swaps the whole content for items in a single change.
func (l *NotificationList) Replace(items []Notification) {
	l.mu.Lock()
	removed := len(l.items)
	l.items = append([]Notification(nil), items...)
	subs := l.subscribers()
	l.mu.Unlock()

	emit(subs, Change{Position: 0, Removed: removed, Added: len(items)})
}

// Get looks an item up by composite id.
func (l *NotificationList) Get(id string) (Notification, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexOf(id); i >= 0 {
		return l.items[i], true
	}
	return Notification{}, false
}

// RemoveByID removes the item with the given id and reports whether it
// was present.
func (l *NotificationList) RemoveByID(id string) bool {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	subs := l.subscribers()
	l.mu.Unlock()

	emit(subs, Change{Position: i, Removed: 1})
	return true
}

// RemoveWhere removes every item matching pred and returns how many were
// removed. One change is emitted per removed item, back to front, so
// positions stay valid for consumers applying them in order.
func (l *NotificationList) RemoveWhere(pred func(Notification) bool) int {
	l.mu.Lock()
	var changes []Change
	kept := l.items[:0]
	for i, n := range l.items {
		if pred(n) {
			changes = append(changes, Change{Position: i, Removed: 1})
			continue
		}
		kept = append(kept, n)
	}
	l.items = kept
	subs := l.subscribers()
	l.mu.Unlock()

	for i := len(changes) - 1; i >= 0; i-- {
		emit(subs, changes[i])
	}
	return len(changes)
}

// Len returns the number of items.
func (l *NotificationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns a copy of the items in order.
func (l *NotificationList) Items() []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Notification(nil), l.items...)
}

func (l *NotificationList) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// subscribers must be called with the lock held.
func (l *NotificationList) subscribers() []func(Change) {
	subs := make([]func(Change), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	return subs
}

func emit(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}
