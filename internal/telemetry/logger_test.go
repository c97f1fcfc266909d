package telemetry

import "testing"

func TestSetLoggerOverridesOutput(t *testing.T) {
	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	defer SetLogger(nil)

	Logf("hello %d", 1)
	if got != "hello %d" {
		t.Errorf("Logf did not route through SetLogger's replacement, got %q", got)
	}
}

func TestSetLoggerNilIsNoOp(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(nil)
	Logf("should not panic")
}
