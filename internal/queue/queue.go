// Package queue runs build tasks strictly one at a time, in enqueue order.
//
// A Serializer owns its tasks once they are enqueued. Task i+1 never starts
// before task i has returned its Result, whatever that result is: failures
// and panics are reported and the queue advances.
package queue

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/telemetry"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = stderrors.New("queue closed")

// Result is the outcome of one task. It never escapes the serializer as an
// error.
type Result struct {
	Success bool

	// Messages are human-readable report lines, in order.
	Messages []string

	// Produced is the output file written by the task, if any.
	Produced string
}

// Ok returns a successful Result.
func Ok(produced string, messages ...string) Result {
	return Result{Success: true, Messages: messages, Produced: produced}
}

// Fail returns a failed Result.
func Fail(messages ...string) Result {
	return Result{Messages: messages}
}

// Task is a unit of work run by a Serializer.
type Task struct {
	Category string
	Source   string
	Run      func(ctx context.Context) Result
}

// CompleteFunc observes every finished task, in completion order.
type CompleteFunc func(task Task, result Result)

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger task results are reported to.
func WithLogger(log *slog.Logger) Option {
	return func(s *Serializer) {
		s.log = log
	}
}

// WithMetrics records task outcomes and queue depth.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Serializer) {
		s.metrics = m
	}
}

// WithOnComplete registers an observer called after every task.
func WithOnComplete(fn CompleteFunc) Option {
	return func(s *Serializer) {
		s.onComplete = fn
	}
}

// Serializer is a single-worker FIFO queue.
type Serializer struct {
	name       string
	log        *slog.Logger
	metrics    *telemetry.Metrics
	onComplete CompleteFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tasks   []Task
	running bool
	closed  bool
	idle    chan struct{}
}

// New creates a Serializer. name labels its logs, spans and metrics.
func New(name string, opts ...Option) *Serializer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Serializer{
		name:   name,
		log:    logger.Discard(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the queue name.
func (s *Serializer) Name() string {
	return s.name
}

// Enqueue appends a task. The worker starts if it is idle.
func (s *Serializer) Enqueue(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.tasks = append(s.tasks, task)
	s.metrics.SetQueueDepth(s.name, len(s.tasks))

	if !s.running {
		s.running = true
		s.idle = make(chan struct{})
		go s.drain()
	}
	return nil
}

// Len returns the number of tasks waiting to run, excluding the one
// currently running.
func (s *Serializer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Wait blocks until the queue is empty and no task is running.
func (s *Serializer) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops waiting tasks and cancels the context of the running one.
// Close does not wait for the running task to return.
func (s *Serializer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if dropped := len(s.tasks); dropped > 0 {
		s.log.Debug("dropping queued tasks", "queue", s.name, "count", dropped)
	}
	s.tasks = nil
	s.metrics.SetQueueDepth(s.name, 0)
	s.cancel()
}

func (s *Serializer) drain() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.running = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		task := s.tasks[0]
		s.tasks[0] = Task{}
		s.tasks = s.tasks[1:]
		s.metrics.SetQueueDepth(s.name, len(s.tasks))
		s.mu.Unlock()

		s.run(task)
	}
}

func (s *Serializer) run(task Task) {
	ctx, span := telemetry.StartBuild(s.ctx, s.name, task.Category, task.Source)
	start := time.Now()

	result := s.safeRun(ctx, task)
	took := time.Since(start)

	var spanErr error
	if !result.Success {
		spanErr = stderrors.New(firstMessage(result))
	}
	telemetry.End(span, spanErr)
	s.metrics.RecordBuild(s.name, task.Category, result.Success, took)
	s.report(task, result, took)

	if s.onComplete != nil {
		s.onComplete(task, result)
	}
}

func (s *Serializer) safeRun(ctx context.Context, task Task) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Fail(fmt.Sprintf("panic: %v", r))
		}
	}()
	if task.Run == nil {
		return Fail("task has no run function")
	}
	return task.Run(ctx)
}

func (s *Serializer) report(task Task, result Result, took time.Duration) {
	attrs := []any{
		"queue", s.name,
		"category", task.Category,
		"source", task.Source,
		"took", took,
	}
	if result.Produced != "" {
		attrs = append(attrs, "produced", result.Produced)
	}
	if len(result.Messages) > 0 {
		attrs = append(attrs, "messages", result.Messages)
	}

	if result.Success {
		s.log.Info("build finished", attrs...)
		return
	}
	s.log.Error("build failed", attrs...)
}

func firstMessage(r Result) string {
	if len(r.Messages) == 0 {
		return "failed"
	}
	return r.Messages[0]
}
