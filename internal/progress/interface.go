package progress

// Notification is one progress update for a running transfer.
type Notification struct {
	// Bytes is the cumulative number of bytes transferred so far.
	Bytes int64
	// EndOfFile is set on the final notification of a completed transfer.
	EndOfFile bool
	// SizeUnknown is set when the total size of the transfer is not known.
	SizeUnknown bool
	// NotificationID identifies the transfer towards the receiver.
	NotificationID int
	// ProjectName is the project being transferred.
	ProjectName string
}

// Sink receives progress notifications. Implementations must tolerate being
// called repeatedly from the transferring goroutine.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(n Notification)

// Notify calls f(n).
func (f SinkFunc) Notify(n Notification) {
	f(n)
}

// NoOp is a sink that discards every notification.
type NoOp struct{}

// Notify does nothing.
func (NoOp) Notify(Notification) {}

// Multi fans notifications out to several sinks in order.
type Multi []Sink

// Notify forwards n to every non-nil sink.
func (m Multi) Notify(n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// OrNoOp returns s, or NoOp when s is nil.
func OrNoOp(s Sink) Sink {
	if s == nil {
		return NoOp{}
	}
	return s
}
