package core

import (
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(out)
}

func TestLogLevelFromEnvAppliesAfterStartup(t *testing.T) {
	// The global logger exists before any env file is loaded; a LOG_LEVEL
	// set afterwards must still take effect.
	t.Setenv("LOG_LEVEL", "ERROR")

	out := captureStdout(t, func() {
		GetLogger().Info("quiet info line")
		GetLogger().Error("loud error line")
	})

	if strings.Contains(out, "quiet info line") {
		t.Errorf("INFO emitted despite LOG_LEVEL=ERROR: %q", out)
	}
	if !strings.Contains(out, "loud error line") {
		t.Errorf("ERROR suppressed: %q", out)
	}
}

func TestExplicitMinLevelIgnoresEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	logger := NewDevelopmentLogger("INFO")

	out := captureStdout(t, func() {
		logger.Debug("debug line")
		logger.Info("info line")
	})

	if strings.Contains(out, "debug line") {
		t.Errorf("DEBUG emitted below explicit INFO level: %q", out)
	}
	if !strings.Contains(out, "info line") {
		t.Errorf("INFO suppressed despite explicit INFO level: %q", out)
	}
}

func TestUnknownLevelDefaultsToDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "VERBOSE")

	out := captureStdout(t, func() {
		GetLogger().Debug("still here")
	})

	if !strings.Contains(out, "still here") {
		t.Errorf("DEBUG suppressed under unknown level: %q", out)
	}
}

func TestWithAttrsAppearInOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	logger := GetLogger().With(map[string]any{"component": "test"})

	out := captureStdout(t, func() {
		logger.Info("attributed line")
	})

	if !strings.Contains(out, "component=test") {
		t.Errorf("attrs missing from output: %q", out)
	}
}
