package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNamed_AddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cli")
	l.SetOutput(&buf)

	l.Named("transfer").Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "transfer") {
		t.Errorf("unexpected log output %q", out)
	}
	if l.Output() != &buf {
		t.Error("Output() did not return the writer set with SetOutput")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := NewDefaultCLILogger()
	if OrNop(l) != l {
		t.Error("OrNop should return a non-nil logger unchanged")
	}
}

func TestNopLogger_Discards(t *testing.T) {
	l := NewNopLogger()
	l.Errorf("nothing %d", 1)
	l.Warnf("nothing")
}
