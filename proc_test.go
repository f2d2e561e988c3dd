package veostub

import "testing"

func TestProcIdentifierTracksListPosition(t *testing.T) {
	processTable.mu.Lock()
	processTable.handles = nil
	processTable.mu.Unlock()

	h1 := newFakeHandle(t, nil)
	h2 := newFakeHandle(t, nil)

	processTable.mu.Lock()
	processTable.handles = append(processTable.handles, h1, h2)
	processTable.mu.Unlock()

	if got := ProcIdentifier(h1); got != 0 {
		t.Errorf("ProcIdentifier(h1) = %d, want 0", got)
	}
	if got := ProcIdentifier(h2); got != 1 {
		t.Errorf("ProcIdentifier(h2) = %d, want 1", got)
	}

	processTable.mu.Lock()
	processTable.handles = append(processTable.handles[:0], processTable.handles[1:]...)
	processTable.mu.Unlock()

	if got := ProcIdentifier(h2); got != 0 {
		t.Errorf("after removing h1, ProcIdentifier(h2) = %d, want 0", got)
	}

	processTable.mu.Lock()
	processTable.handles = nil
	processTable.mu.Unlock()
}

func TestProcIdentifierUnregisteredHandle(t *testing.T) {
	h := newFakeHandle(t, nil)
	if got := ProcIdentifier(h); got != -1 {
		t.Errorf("ProcIdentifier of an unregistered handle = %d, want -1", got)
	}
}

func TestProcIdentifierNilHandle(t *testing.T) {
	if got := ProcIdentifier(nil); got != -1 {
		t.Errorf("ProcIdentifier(nil) = %d, want -1", got)
	}
}

func TestProcDestroyNilHandle(t *testing.T) {
	if rc := ProcDestroy(nil); rc != CommandError {
		t.Errorf("ProcDestroy(nil) = %d, want CommandError", rc)
	}
}

func TestProcDestroyClosesNonDefaultContextsFirst(t *testing.T) {
	h := newFakeHandle(t, nil)

	// Simulate a second, non-default context without a real second
	// socket dial: splice a duplicate of the default context's plumbing
	// directly into the handle's context list.
	extra := newContext(h, h.defaultCtx.conn, false)
	h.mu.Lock()
	h.contexts = append(h.contexts, extra)
	h.mu.Unlock()

	if NumContexts(h) != 2 {
		t.Fatalf("expected 2 contexts before destroy, got %d", NumContexts(h))
	}

	h.mu.Lock()
	leftover := 0
	for _, c := range h.contexts {
		if !c.isDefault {
			leftover++
		}
	}
	h.mu.Unlock()
	if leftover != 1 {
		t.Errorf("expected 1 non-default context, got %d", leftover)
	}

	// The fake handle has no child process, so ProcDestroy skips reaping.
	// Closing extra ends the fake dispatcher and closes the shared pipe;
	// the default context's QUIT then fails to send and its communicator
	// exits as on peer loss.
	if rc := ProcDestroy(h); rc != CommandOK {
		t.Fatalf("ProcDestroy rc = %d, want CommandOK", rc)
	}
	if GetContextState(extra) != ContextExited {
		t.Errorf("ProcDestroy left the non-default context running")
	}
	if NumContexts(h) != 1 {
		t.Errorf("expected only the default context left after destroy, got %d", NumContexts(h))
	}
}
