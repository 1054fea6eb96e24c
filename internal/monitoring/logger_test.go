package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestSetLogWriters(t *testing.T) {
	defer SetLogWriters(nil, nil)

	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag)

	Opsf("load failed: %s", "day.csv")
	Diagf("cache hit rows=%d", 731)

	if !strings.Contains(ops.String(), "load failed: day.csv") {
		t.Errorf("ops stream = %q, want load failure line", ops.String())
	}
	if strings.Contains(ops.String(), "cache hit") {
		t.Errorf("diag line leaked into ops stream: %q", ops.String())
	}
	if !strings.Contains(diag.String(), "cache hit rows=731") {
		t.Errorf("diag stream = %q, want cache line", diag.String())
	}
}

func TestSetLogWriters_NilDisables(t *testing.T) {
	SetLogWriters(nil, nil)
	// Must not panic with both streams disabled.
	Opsf("dropped")
	Diagf("dropped")
}
