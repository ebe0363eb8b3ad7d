package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelsAndOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = SetLevel("info")
	})

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Info("hidden")
	Error("save failed", errors.New("disk full"), "path", "/tmp/x")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "err=\"disk full\"") || !strings.Contains(out, "path=/tmp/x") {
		t.Fatalf("missing attributes: %q", out)
	}

	if err := SetLevel("loud"); err == nil {
		t.Fatal("expected unknown level error")
	}
}
