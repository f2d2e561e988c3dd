package veostub

import "testing"

func TestContextOpenFirstCallReturnsDefault(t *testing.T) {
	h := newFakeHandle(t, nil)

	if NumContexts(h) != 1 {
		t.Fatalf("NumContexts = %d, want 1", NumContexts(h))
	}
	ctx := GetContext(h, 0)
	if ctx != h.defaultCtx {
		t.Errorf("GetContext(0) did not return the default context")
	}
	if GetContextState(ctx) != ContextRunning {
		t.Errorf("expected default context to be RUNNING")
	}
}

func TestNextReqIDMonotonic(t *testing.T) {
	h := newFakeHandle(t, nil)
	ctx := h.defaultCtx

	first := ctx.nextReqID()
	second := ctx.nextReqID()
	if first != 0 || second != 1 {
		t.Errorf("nextReqID sequence = %d, %d; want 0, 1", first, second)
	}
}

func TestGetContextOutOfRange(t *testing.T) {
	h := newFakeHandle(t, nil)
	if GetContext(h, 5) != nil {
		t.Errorf("expected nil for out-of-range index")
	}
	if GetContext(nil, 0) != nil {
		t.Errorf("expected nil for nil handle")
	}
}

func TestContextStateString(t *testing.T) {
	if ContextRunning.String() != "RUNNING" {
		t.Errorf("ContextRunning.String() = %q", ContextRunning.String())
	}
	if ContextExited.String() != "EXIT" {
		t.Errorf("ContextExited.String() = %q", ContextExited.String())
	}
}

func TestContextCloseRemovesDefaultFromList(t *testing.T) {
	h := newFakeHandle(t, nil)
	ctx := h.defaultCtx

	ContextClose(ctx)
	if NumContexts(h) != 0 {
		t.Errorf("closing the default context should remove it from the list, NumContexts = %d", NumContexts(h))
	}
	if GetContextState(ctx) != ContextRunning {
		t.Errorf("closing the default context should not tear down its communicator")
	}
}

func TestContextOpenNilHandle(t *testing.T) {
	if _, err := ContextOpen(nil); err == nil {
		t.Errorf("expected an error opening a context on a nil handle")
	}
}
