package core

// EventContext carries the payload of a fired event.
type EventContext struct {
	// Name of the asset or object the event is about, if any.
	Name string
	U64  [2]uint64
	F64  [2]float64
}

// SystemEventCode identifies an event. Application codes start at
// EventCodeUser.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EventCodeApplicationQuit SystemEventCode = iota + 1
	// A scene file was applied.
	/* Context usage:
	 * Name = path of the scene file
	 * U64[0] = number of primitives after the reload
	 */
	EventCodeSceneReloaded
	// A scene file change could not be applied; the previous scene stays.
	/* Context usage:
	 * Name = error text
	 */
	EventCodeSceneReloadFailed
	// A chain could not satisfy a request.
	/* Context usage:
	 * Name = memory type
	 * U64[0] = requested size
	 */
	EventCodeOutOfMemory

	EventCodeUser SystemEventCode = 0xFF
)

// FnOnEvent returns true when it handled the event.
type FnOnEvent func(code SystemEventCode, sender any, listener any, data EventContext) bool

type registeredEvent struct {
	listener any
	callback FnOnEvent
}

// EventBus dispatches events synchronously on the caller's goroutine.
type EventBus struct {
	registered map[SystemEventCode][]registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{registered: make(map[SystemEventCode][]registeredEvent)}
}

// Register adds a listener for code. A listener can register once per
// code; a second registration returns false.
func (b *EventBus) Register(code SystemEventCode, listener any, onEvent FnOnEvent) bool {
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

func (b *EventBus) Unregister(code SystemEventCode, listener any) bool {
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire calls listeners in registration order until one handles the
// event. It reports whether the event was handled.
func (b *EventBus) Fire(code SystemEventCode, sender any, data EventContext) bool {
	for _, e := range b.registered[code] {
		if e.callback(code, sender, e.listener, data) {
			return true
		}
	}
	return false
}

// Clear drops every registration.
func (b *EventBus) Clear() {
	clear(b.registered)
}
