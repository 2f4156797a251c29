package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

func TestWithDeviceTabAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	log := WithDeviceTab(ctx, schema.DeviceLaptop, "tab1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["device"] != string(schema.DeviceLaptop) {
		t.Fatalf("expected device field, got %+v", entry)
	}
	if entry["tab"] != "tab1" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

func TestWithDeviceSkipsDuplicateMarker(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := ContextWithDeviceLogger(context.Background(), logger.With("device", schema.DeviceLaptop), schema.DeviceLaptop)
	log := WithDevice(ctx, schema.DeviceLaptop)
	log.Info("hello")

	data := capture.buf.String()
	if count := bytes.Count([]byte(data), []byte(`"device"`)); count != 1 {
		t.Fatalf("expected one device field, got %d in %q", count, data)
	}
}

func TestWithSessionAddsField(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	log := WithSession(logger, "sess-9")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "sess-9" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
