package logging

import "testing"

// TestSafeBeforeInit: package-level helpers must be callable before Init,
// falling back to the noop logger instead of panicking.
func TestSafeBeforeInit(t *testing.T) {
	Infow("safe", "k", 1)
	Debugw("safe")
	Warnw("safe")
	Errorw("safe")
	if err := Sync(); err != nil {
		t.Fatalf("noop Sync returned %v", err)
	}
}

func TestInitIdempotent(t *testing.T) {
	a := Init()
	b := Init()
	if a == nil || a != b {
		t.Fatal("Init must return the same logger on every call")
	}
	if Sugar() != a {
		t.Fatal("Sugar must expose the initialized logger")
	}
	Infow("initialized", "component", "test")
}
