package monitoring

import (
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

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestDebugf(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	SetDebug(false)
	Debugf("hidden")
	if len(lines) != 0 {
		t.Fatalf("Debugf logged while disabled: %v", lines)
	}

	SetDebug(true)
	Debugf("shown")
	if len(lines) != 1 || lines[0] != "shown" {
		t.Errorf("Debugf output: %v", lines)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	defer SetDebug(false)

	t.Setenv(LogLevelEnv, "debug")
	ConfigureFromEnv()
	if !DebugEnabled() {
		t.Error("debug should be enabled")
	}

	t.Setenv(LogLevelEnv, "info")
	ConfigureFromEnv()
	if DebugEnabled() {
		t.Error("debug should be disabled")
	}
}
