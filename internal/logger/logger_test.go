package logger

import (
	"bytes"
	"os"
	"testing"
)

func resetLogger() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer resetLogger()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer resetLogger()

	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetVerbose(true)

	Debug("processing %s", "Acme_Annual_Report_2023.pdf")

	got := buf.String()
	if got != "[DEBUG] processing Acme_Annual_Report_2023.pdf\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer resetLogger()

	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetVerbose(false)

	Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWarnAndInfo(t *testing.T) {
	defer resetLogger()

	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetVerbose(true)

	Info("converted %d pages", 12)
	Warn("partial extraction")

	got := buf.String()
	want := "[INFO] converted 12 pages\n[WARN] partial extraction\n"
	if got != want {
		t.Errorf("unexpected output: %q", got)
	}
}
