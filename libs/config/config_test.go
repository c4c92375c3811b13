package config

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := Int("TEST_INT", 7); got != 42 {
		t.Errorf("Int = %d, want 42", got)
	}
	if got := Int("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("missing Int = %d, want fallback 7", got)
	}
	t.Setenv("TEST_INT_BAD", "forty-two")
	if got := Int("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("bad Int = %d, want fallback 7", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	if got := Duration("TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", got)
	}
	if got := Duration("TEST_DUR_MISSING", 3*time.Second); got != 3*time.Second {
		t.Errorf("missing Duration = %v, want fallback 3s", got)
	}
	t.Setenv("TEST_DUR_BAD", "soonish")
	if got := Duration("TEST_DUR_BAD", 3*time.Second); got != 3*time.Second {
		t.Errorf("bad Duration = %v, want fallback 3s", got)
	}
}

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8083")
	if got, err := Port("TEST_PORT", "8080"); err != nil || got != "8083" {
		t.Errorf("Port = %q, %v", got, err)
	}
	t.Setenv("TEST_PORT_BAD", "not-a-port")
	if _, err := Port("TEST_PORT_BAD", "8080"); err == nil {
		t.Error("expected error for non-numeric port")
	}
	t.Setenv("TEST_PORT_RANGE", "70000")
	if _, err := Port("TEST_PORT_RANGE", "8080"); err == nil {
		t.Error("expected error for out-of-range port")
	}
}
