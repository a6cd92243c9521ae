// Package progress provides progress reporting for transfers across CLI
// (progress bars) and library (event bus) callers.
package progress

import (
	"io"
	"sync"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/events"
)

// Reader wraps an io.Reader and reports progress every chunk bytes.
// It never reports EndOfFile on its own; call Finish once the transfer
// has completed so that the final notification is sent exactly once.
type Reader struct {
	reader         io.Reader
	sink           Sink
	chunk          int64
	total          int64 // -1 when unknown
	current        int64
	lastReported   int64
	notificationID int
	projectName    string

	finishOnce sync.Once
}

// NewReader creates a progress-reporting reader. A total below zero marks
// the size as unknown; a chunk of zero or less uses the default chunk size.
func NewReader(reader io.Reader, total, chunk int64, sink Sink, notificationID int, projectName string) *Reader {
	if chunk <= 0 {
		chunk = constants.ProgressChunkSize
	}
	return &Reader{
		reader:         reader,
		sink:           OrNoOp(sink),
		chunk:          chunk,
		total:          total,
		notificationID: notificationID,
		projectName:    projectName,
	}
}

// Read implements io.Reader interface with progress reporting.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.current += int64(n)
	if r.current-r.lastReported >= r.chunk {
		r.lastReported = r.current
		r.notify(false)
	}
	return n, err
}

// Current returns the number of bytes read so far.
func (r *Reader) Current() int64 {
	return r.current
}

// Finish sends the final EndOfFile notification. Only the first call has
// an effect.
func (r *Reader) Finish() {
	r.finishOnce.Do(func() {
		r.notify(true)
	})
}

func (r *Reader) notify(endOfFile bool) {
	r.sink.Notify(Notification{
		Bytes:          r.current,
		EndOfFile:      endOfFile,
		SizeUnknown:    r.total < 0,
		NotificationID: r.notificationID,
		ProjectName:    r.projectName,
	})
}

// EventSink publishes notifications on an event bus. Subscribers receive
// them asynchronously relative to the transferring goroutine.
type EventSink struct {
	bus *events.EventBus
}

// NewEventSink creates a sink publishing to bus.
func NewEventSink(bus *events.EventBus) *EventSink {
	return &EventSink{bus: bus}
}

// Notify publishes n as a ProgressEvent.
func (s *EventSink) Notify(n Notification) {
	s.bus.PublishProgress(n.Bytes, n.EndOfFile, n.SizeUnknown, n.NotificationID, n.ProjectName)
}
