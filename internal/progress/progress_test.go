package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/catrobat/catroid-share/internal/events"
)

type recordingSink struct {
	got []Notification
}

func (r *recordingSink) Notify(n Notification) {
	r.got = append(r.got, n)
}

func TestReader_ReportsEveryChunk(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100*1024)
	sink := &recordingSink{}
	r := NewReader(bytes.NewReader(data), int64(len(data)), 20*1024, sink, 3, "Pong")

	buf := make([]byte, 4*1024)
	var n int64
	for {
		read, err := r.Read(buf)
		n += int64(read)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}
	if n != int64(len(data)) {
		t.Fatalf("copied %d bytes, want %d", n, len(data))
	}

	if len(sink.got) != 5 {
		t.Fatalf("expected 5 chunk notifications, got %d", len(sink.got))
	}
	for i, note := range sink.got {
		if note.EndOfFile {
			t.Errorf("notification %d: EndOfFile set before Finish", i)
		}
		if note.SizeUnknown {
			t.Errorf("notification %d: size should be known", i)
		}
		if note.NotificationID != 3 || note.ProjectName != "Pong" {
			t.Errorf("notification %d: wrong identity %+v", i, note)
		}
	}
	if last := sink.got[len(sink.got)-1].Bytes; last != int64(len(data)) {
		t.Errorf("last chunk notification at %d, want %d", last, len(data))
	}
}

func TestReader_FinishSendsEndOfFileOnce(t *testing.T) {
	sink := &recordingSink{}
	r := NewReader(strings.NewReader("hello"), -1, 0, sink, 1, "p")

	if _, err := io.ReadAll(r); err != nil {
		t.Fatal(err)
	}
	r.Finish()
	r.Finish()

	eof := 0
	for _, n := range sink.got {
		if n.EndOfFile {
			eof++
			if n.Bytes != 5 {
				t.Errorf("final notification Bytes = %d, want 5", n.Bytes)
			}
			if !n.SizeUnknown {
				t.Error("expected SizeUnknown for negative total")
			}
		}
	}
	if eof != 1 {
		t.Errorf("expected exactly one EndOfFile notification, got %d", eof)
	}
}

func TestReader_NilSink(t *testing.T) {
	r := NewReader(strings.NewReader("abc"), 3, 1, nil, 0, "")
	if _, err := io.ReadAll(r); err != nil {
		t.Fatal(err)
	}
	r.Finish()
	if r.Current() != 3 {
		t.Errorf("Current() = %d", r.Current())
	}
}

func TestEventSink_PublishesAsynchronously(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventProgress)

	NewEventSink(bus).Notify(Notification{Bytes: 9, EndOfFile: true, NotificationID: 4, ProjectName: "Pong"})

	select {
	case ev := <-ch:
		pe := ev.(*events.ProgressEvent)
		if !pe.EndOfFile || pe.Bytes != 9 || pe.NotificationID != 4 || pe.ProjectName != "Pong" {
			t.Errorf("unexpected event %+v", pe)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for progress event")
	}
}

func TestMulti_SkipsNil(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Multi{a, nil, b}.Notify(Notification{Bytes: 1})
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("fan-out failed: %d, %d", len(a.got), len(b.got))
	}
}

func TestSinkFunc(t *testing.T) {
	called := false
	SinkFunc(func(Notification) { called = true }).Notify(Notification{})
	if !called {
		t.Error("SinkFunc not invoked")
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"/a/b/c/project.catrobat", 2, "…/c/project.catrobat"},
		{"project.catrobat", 2, "project.catrobat"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.max); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
	}
}
