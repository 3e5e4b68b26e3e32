package taskqueue

import (
	"context"
	"sync"
	"time"

	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"
)

// Task is a unit of background work. The returned error is reported to the
// queue logger and discarded; it never reaches the goroutine that enqueued
// the task.
type Task func() error

type Options struct {
	// MaxPending caps the number of tasks waiting to run. When the cap is
	// reached the oldest pending task is dropped, not executed. Defaults to
	// DefaultMaxPending.
	MaxPending int

	// Interval is an optional pause between tasks.
	Interval time.Duration

	// Logger receives swallowed task errors and panics.
	Logger logger.Logger
}

const DefaultMaxPending = 1000

// Queue executes tasks one at a time, in enqueue order, on a single drain
// goroutine. Enqueuing never blocks and a failing task never stops the
// loop. One Queue instance may be shared by any number of producers; tasks
// from unrelated producers interleave at the queue level only.
type Queue struct {
	access     sync.Mutex
	tasks      []queueItem
	draining   bool
	maxPending int
	interval   time.Duration
	logger     logger.Logger
}

type queueItem struct {
	run    Task
	onDrop func()
}

func New(options Options) *Queue {
	maxPending := options.MaxPending
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Queue{
		maxPending: maxPending,
		interval:   options.Interval,
		logger:     options.Logger,
	}
}

// Enqueue appends a task and starts the drain loop if it is not already
// running. When the queue is full the oldest pending task is discarded to
// bound memory.
func (q *Queue) Enqueue(task Task) {
	q.push(queueItem{run: task})
}

// EnqueueNotifyDrop appends a task like Enqueue and additionally invokes
// onDrop if the overflow policy discards the task before it runs. Producers
// that track an in-flight task through a flag use this to release the flag
// when the task is lost.
func (q *Queue) EnqueueNotifyDrop(task Task, onDrop func()) {
	q.push(queueItem{run: task, onDrop: onDrop})
}

func (q *Queue) push(item queueItem) {
	var dropped func()
	q.access.Lock()
	if len(q.tasks) >= q.maxPending {
		dropped = q.tasks[0].onDrop
		q.tasks = q.tasks[1:]
	}
	q.tasks = append(q.tasks, item)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.access.Unlock()
	if dropped != nil {
		dropped()
	}
	if start {
		go q.drain()
	}
}

func (q *Queue) drain() {
	for {
		q.access.Lock()
		if len(q.tasks) == 0 {
			q.draining = false
			q.access.Unlock()
			return
		}
		item := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.access.Unlock()
		q.run(item.run)
		if q.interval > 0 {
			time.Sleep(q.interval)
		}
	}
}

func (q *Queue) run(task Task) {
	defer func() {
		if value := recover(); value != nil && q.logger != nil {
			q.logger.Error(E.New("task panic: ", value))
		}
	}()
	err := task()
	if err != nil && q.logger != nil {
		q.logger.Error(E.Cause(err, "background task"))
	}
}

// Size returns the number of tasks not yet started.
func (q *Queue) Size() int {
	q.access.Lock()
	defer q.access.Unlock()
	return len(q.tasks)
}

// IsDraining reports whether the drain loop is currently active.
func (q *Queue) IsDraining() bool {
	q.access.Lock()
	defer q.access.Unlock()
	return q.draining
}

// WaitForCompletion polls until the queue is empty and idle, or ctx is
// done. It is a synchronization point for tests and graceful shutdown.
func (q *Queue) WaitForCompletion(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.access.Lock()
		idle := len(q.tasks) == 0 && !q.draining
		q.access.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
