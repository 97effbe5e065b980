package runtime

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerLevelAndServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "booking-service", "warn")

	logger.Info("dropped")
	logger.Warn("kept", "slot", "09:30")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"service":"booking-service"`) || !strings.Contains(out, `"slot":"09:30"`) {
		t.Fatalf("missing structured fields: %s", out)
	}
}
