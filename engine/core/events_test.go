package core

import "testing"

type recorder struct {
	calls   int
	lastU16 uint16
	handle  bool
}

func (r *recorder) onEvent(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool {
	r.calls++
	r.lastU16 = data.Data.U16[0]
	return r.handle
}

func resetEvents(t *testing.T) {
	t.Helper()
	EventInitialize()
	t.Cleanup(func() {
		EventShutdown()
	})
}

func TestEventFireReachesListener(t *testing.T) {
	resetEvents(t)
	r := &recorder{}
	if !EventRegister(EVENT_CODE_KEY_PRESSED, r, r.onEvent) {
		t.Fatal("register failed")
	}

	context := EventContext{}
	context.Data.U16[0] = 42
	EventFire(EVENT_CODE_KEY_PRESSED, nil, context)

	if r.calls != 1 || r.lastU16 != 42 {
		t.Errorf("calls=%d last=%d, want 1/42", r.calls, r.lastU16)
	}
}

func TestEventDuplicateRegistrationRejected(t *testing.T) {
	resetEvents(t)
	r := &recorder{}
	EventRegister(EVENT_CODE_RESIZED, r, r.onEvent)
	if EventRegister(EVENT_CODE_RESIZED, r, r.onEvent) {
		t.Error("duplicate listener must be rejected")
	}
}

func TestEventHandledStopsPropagation(t *testing.T) {
	resetEvents(t)
	first := &recorder{handle: true}
	second := &recorder{}
	EventRegister(EVENT_CODE_APPLICATION_QUIT, first, first.onEvent)
	EventRegister(EVENT_CODE_APPLICATION_QUIT, second, second.onEvent)

	EventFire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})

	if first.calls != 1 {
		t.Errorf("first listener calls = %d", first.calls)
	}
	if second.calls != 0 {
		t.Error("handled event must not propagate further")
	}
}

func TestEventUnregisterStopsDelivery(t *testing.T) {
	resetEvents(t)
	r := &recorder{}
	EventRegister(EVENT_CODE_KEY_RELEASED, r, r.onEvent)
	if !EventUnregister(EVENT_CODE_KEY_RELEASED, r, r.onEvent) {
		t.Fatal("unregister failed")
	}

	EventFire(EVENT_CODE_KEY_RELEASED, nil, EventContext{})
	if r.calls != 0 {
		t.Error("unregistered listener must not be called")
	}
}
