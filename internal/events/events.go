// Package events delivers progress and model-change notifications to
// subscribers asynchronously from the goroutine that produced them.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/catrobat/catroid-share/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventProgress      EventType = "progress"
	EventProjectChange EventType = "project_changed"
	EventStageStart    EventType = "stage_started"

	EventTransferQueued    EventType = "transfer_queued"
	EventTransferStarted   EventType = "transfer_started"
	EventTransferCompleted EventType = "transfer_completed"
	EventTransferFailed    EventType = "transfer_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ProgressEvent carries one transfer progress notification.
type ProgressEvent struct {
	BaseEvent
	Bytes          int64
	EndOfFile      bool
	SizeUnknown    bool
	NotificationID int
	ProjectName    string
}

// ProjectChangeEvent tells list views that the model changed and must be redrawn.
type ProjectChangeEvent struct {
	BaseEvent
	ProjectName string
	SceneName   string // empty when the scene list itself changed
	Action      string // "scene_added", "sprite_added", "look_added"
	ItemName    string
}

// StageStartEvent is published when a scene is started on the stage.
type StageStartEvent struct {
	BaseEvent
	ProjectName string
	SceneName   string
}

// TransferEvent represents transfer runner events
type TransferEvent struct {
	BaseEvent
	TaskID         string
	TaskType       string // "upload" or "download"
	Name           string
	NotificationID int
	Error          error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. Events for a
// full subscriber buffer are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishProgress is a convenience method for publishing progress events
func (eb *EventBus) PublishProgress(bytes int64, endOfFile, sizeUnknown bool, notificationID int, projectName string) {
	eb.Publish(&ProgressEvent{
		BaseEvent: BaseEvent{
			EventType: EventProgress,
			Time:      time.Now(),
		},
		Bytes:          bytes,
		EndOfFile:      endOfFile,
		SizeUnknown:    sizeUnknown,
		NotificationID: notificationID,
		ProjectName:    projectName,
	})
}

// PublishProjectChange is a convenience method for publishing model changes
func (eb *EventBus) PublishProjectChange(projectName, sceneName, action, itemName string) {
	eb.Publish(&ProjectChangeEvent{
		BaseEvent: BaseEvent{
			EventType: EventProjectChange,
			Time:      time.Now(),
		},
		ProjectName: projectName,
		SceneName:   sceneName,
		Action:      action,
		ItemName:    itemName,
	})
}

// PublishStageStart is a convenience method for publishing stage starts
func (eb *EventBus) PublishStageStart(projectName, sceneName string) {
	eb.Publish(&StageStartEvent{
		BaseEvent: BaseEvent{
			EventType: EventStageStart,
			Time:      time.Now(),
		},
		ProjectName: projectName,
		SceneName:   sceneName,
	})
}

// PublishTransfer is a convenience method for publishing transfer runner events
func (eb *EventBus) PublishTransfer(eventType EventType, taskID, taskType, name string, notificationID int, err error) {
	eb.Publish(&TransferEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Time:      time.Now(),
		},
		TaskID:         taskID,
		TaskType:       taskType,
		Name:           name,
		NotificationID: notificationID,
		Error:          err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
