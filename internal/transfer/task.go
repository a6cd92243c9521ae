// Package transfer runs blocking project uploads and downloads on worker
// goroutines and tracks their state.
package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catrobat/catroid-share/internal/progress"
)

// TaskType indicates whether a task is an upload or download.
type TaskType string

const (
	TaskTypeUpload   TaskType = "upload"
	TaskTypeDownload TaskType = "download"
)

// TaskState represents the current state of a transfer task.
type TaskState string

const (
	TaskPending   TaskState = "pending"   // Waiting for a worker slot
	TaskRunning   TaskState = "running"   // Transfer in progress
	TaskCompleted TaskState = "completed" // Successfully completed
	TaskFailed    TaskState = "failed"    // Failed with error
	TaskCancelled TaskState = "cancelled" // Runner closed or context cancelled before start
)

// Task is a single upload or download. Fields set by the caller must not be
// changed after Submit; state is read through the accessor methods.
type Task struct {
	ID   string
	Type TaskType

	Name           string            // Project name, used in progress notifications
	URL            string            // Endpoint URL
	Fields         map[string]string // Form fields
	FileField      string            // Upload only: multipart field of the archive
	Path           string            // Local archive (upload) or destination (download)
	NotificationID int               // Assigned by the runner when zero
	Sink           progress.Sink

	CreatedAt time.Time

	mu          sync.RWMutex
	state       TaskState
	result      string
	err         error
	startedAt   time.Time
	completedAt time.Time
	done        chan struct{}
}

// NewUploadTask creates a pending upload of the archive at path.
func NewUploadTask(name, url string, fields map[string]string, fileField, path string) *Task {
	t := newTask(TaskTypeUpload, name, url, fields, path)
	t.FileField = fileField
	return t
}

// NewDownloadTask creates a pending download into dest.
func NewDownloadTask(name, url string, fields map[string]string, dest string) *Task {
	return newTask(TaskTypeDownload, name, url, fields, dest)
}

func newTask(taskType TaskType, name, url string, fields map[string]string, path string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Name:      name,
		URL:       url,
		Fields:    fields,
		Path:      path,
		CreatedAt: time.Now(),
		state:     TaskPending,
		done:      make(chan struct{}),
	}
}

// State returns the current state (thread-safe).
func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Err returns the error of a failed task.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Result returns the response body of a completed upload.
func (t *Task) Result() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Duration returns how long the task ran, or has been running.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startedAt.IsZero() {
		return 0
	}
	if t.completedAt.IsZero() {
		return time.Since(t.startedAt)
	}
	return t.completedAt.Sub(t.startedAt)
}

// IsTerminal returns true if the task is completed, failed or cancelled.
func (t *Task) IsTerminal() bool {
	switch t.State() {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done, and returns the
// task's error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TaskRunning
	t.startedAt = time.Now()
}

func (t *Task) finish(state TaskState, result string, err error) {
	t.mu.Lock()
	t.state = state
	t.result = result
	t.err = err
	t.completedAt = time.Now()
	t.mu.Unlock()
	close(t.done)
}
