package core

import "sync"

// EventContext carries up to 128 bytes of payload alongside an event code.
type EventContext struct {
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		F64 [2]float64

		I32 [4]int32
		U32 [4]uint32
		F32 [4]float32

		I16 [8]int16
		U16 [8]uint16

		I8 [16]int8
		U8 [16]uint8
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * u16 key_code = data.data.u16[0];
	 */
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released.
	/* Context usage:
	 * u16 key_code = data.data.u16[0];
	 */
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * u16 width = data.data.u16[0];
	 * u16 height = data.data.u16[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

const MAX_MESSAGE_CODES = 16384

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventCodeEntry struct {
	events []*registeredEvent
}

type eventSystemState struct {
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES]eventCodeEntry
}

var onceEvent sync.Once
var eventsInitialized bool = false
var eventState *eventSystemState = nil

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

func EventInitialize() bool {
	if eventsInitialized {
		return false
	}
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
	eventsInitialized = true
	return true
}

func EventShutdown() error {
	for i := 0; i < MAX_MESSAGE_CODES; i++ {
		if len(eventState.registered[i].events) != 0 {
			eventState.registered[i].events = nil
		}
	}
	eventsInitialized = false
	return nil
}

// EventRegister subscribes a listener/callback pair to an event code.
// Duplicate listener registrations for the same code are rejected.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if !eventsInitialized {
		return false
	}
	for _, e := range eventState.registered[code].events {
		if e.listener == listener {
			LogWarn("event listener already registered for code %d", code)
			return false
		}
	}
	event := &registeredEvent{
		listener: listener,
		callback: onEvent,
	}
	eventState.registered[code].events = append(eventState.registered[code].events, event)
	return true
}

// EventUnregister removes a previously registered listener for the code.
func EventUnregister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if !eventsInitialized {
		return false
	}
	events := eventState.registered[code].events
	if len(events) == 0 {
		return false
	}
	for i, e := range events {
		if e.listener == listener && e.callback != nil {
			eventState.registered[code].events = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire delivers the event to listeners of the given code in
// registration order. A listener returning true stops propagation.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if !eventsInitialized {
		return false
	}
	if len(eventState.registered[code].events) == 0 {
		return false
	}
	for _, e := range eventState.registered[code].events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
