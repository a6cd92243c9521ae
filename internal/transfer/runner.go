package transfer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/events"
	"github.com/catrobat/catroid-share/internal/logging"
	"github.com/catrobat/catroid-share/internal/progress"
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("transfer runner is closed")

// Transport performs the blocking transfers. *web.Connection implements it.
type Transport interface {
	Upload(ctx context.Context, rawURL string, formFields map[string]string, fileField, filePath string, sink progress.Sink, notificationID int) (string, error)
	Download(ctx context.Context, rawURL string, formFields map[string]string, destPath string, sink progress.Sink, notificationID int, projectName string) error
}

// Stats holds task counts by state.
type Stats struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// Total returns the number of tracked tasks.
func (s Stats) Total() int {
	return s.Pending + s.Running + s.Completed + s.Failed + s.Cancelled
}

// Runner executes tasks on at most Workers goroutines at a time.
//
// Tasks wait for a slot of a counting semaphore, so submission never blocks
// the caller. State changes are published on the event bus when one is set.
type Runner struct {
	transport Transport
	bus       *events.EventBus
	logger    *logging.Logger

	slots  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	nextNotification atomic.Int64

	mu     sync.RWMutex
	tasks  []*Task
	byID   map[string]*Task
	closed bool
}

// NewRunner creates a runner. workers is clamped to [MinWorkers, MaxWorkers].
func NewRunner(transport Transport, workers int, bus *events.EventBus, logger *logging.Logger) *Runner {
	if workers < constants.MinWorkers {
		workers = constants.MinWorkers
	}
	if workers > constants.MaxWorkers {
		workers = constants.MaxWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		transport: transport,
		bus:       bus,
		logger:    logging.OrNop(logger).Named("transfer"),
		slots:     make(chan struct{}, workers),
		ctx:       ctx,
		cancel:    cancel,
		byID:      make(map[string]*Task),
	}
}

// Workers returns the size of the worker pool.
func (r *Runner) Workers() int {
	return cap(r.slots)
}

// Submit queues task and returns immediately. A zero NotificationID is
// replaced with the next free one.
func (r *Runner) Submit(task *Task) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	if task.NotificationID == 0 {
		task.NotificationID = int(r.nextNotification.Add(1))
	}
	r.tasks = append(r.tasks, task)
	r.byID[task.ID] = task
	r.wg.Add(1)
	r.mu.Unlock()

	r.publish(events.EventTransferQueued, task, nil)
	go r.run(task)
	return nil
}

func (r *Runner) run(task *Task) {
	defer r.wg.Done()

	select {
	case r.slots <- struct{}{}:
	case <-r.ctx.Done():
		task.finish(TaskCancelled, "", r.ctx.Err())
		r.publish(events.EventTransferFailed, task, r.ctx.Err())
		return
	}
	defer func() { <-r.slots }()

	task.start()
	r.publish(events.EventTransferStarted, task, nil)
	r.logger.Debug().Str("task", task.ID).Str("type", string(task.Type)).Str("project", task.Name).
		Int("notification_id", task.NotificationID).Msg("Transfer started")

	var result string
	var err error
	switch task.Type {
	case TaskTypeUpload:
		result, err = r.transport.Upload(r.ctx, task.URL, task.Fields, task.FileField, task.Path, task.Sink, task.NotificationID)
	case TaskTypeDownload:
		err = r.transport.Download(r.ctx, task.URL, task.Fields, task.Path, task.Sink, task.NotificationID, task.Name)
	default:
		err = errors.New("unknown task type: " + string(task.Type))
	}

	if err != nil {
		task.finish(TaskFailed, "", err)
		r.logger.Warn().Err(err).Str("task", task.ID).Str("project", task.Name).Msg("Transfer failed")
		r.publish(events.EventTransferFailed, task, err)
		return
	}

	task.finish(TaskCompleted, result, nil)
	r.logger.Info().Str("project", task.Name).Str("type", string(task.Type)).
		Dur("elapsed", task.Duration()).Msg("Transfer completed")
	r.publish(events.EventTransferCompleted, task, nil)
}

// Get returns the task with the given id.
func (r *Runner) Get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Tasks returns all tasks in submission order.
func (r *Runner) Tasks() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Stats returns task counts by state.
func (r *Runner) Stats() Stats {
	var s Stats
	for _, t := range r.Tasks() {
		switch t.State() {
		case TaskPending:
			s.Pending++
		case TaskRunning:
			s.Running++
		case TaskCompleted:
			s.Completed++
		case TaskFailed:
			s.Failed++
		case TaskCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close rejects further submissions, cancels running transfers and waits
// for all tasks to finish.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) publish(eventType events.EventType, task *Task, err error) {
	if r.bus == nil {
		return
	}
	r.bus.PublishTransfer(eventType, task.ID, string(task.Type), task.Name, task.NotificationID, err)
}
