package permissions

import "testing"

func TestEnsureGrantedWhenAllowed(t *testing.T) {
	requests := 0
	g := &Gate{preflight: func() bool { return true }, request: func() bool { requests++; return true }}
	if !g.EnsureGranted() {
		t.Fatal("expected granted")
	}
	if requests != 0 {
		t.Errorf("request should not run when already granted")
	}
}

func TestEnsureGrantedRequestsOnce(t *testing.T) {
	requests := 0
	g := &Gate{preflight: func() bool { return false }, request: func() bool { requests++; return false }}
	for i := 0; i < 3; i++ {
		if g.EnsureGranted() {
			t.Fatal("expected denial")
		}
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestEnsureGrantedAfterPrompt(t *testing.T) {
	g := &Gate{preflight: func() bool { return false }, request: func() bool { return true }}
	if !g.EnsureGranted() {
		t.Error("granting in the prompt should allow the capture")
	}
}
