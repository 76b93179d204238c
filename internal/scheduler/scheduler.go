package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task represents a named periodic task.
type Task struct {
	Name     string
	Interval time.Duration
	Function func()
}

// Scheduler runs periodic tasks on an injectable clock. Each task
// runs in its own goroutine; a panicking task is recovered and logged
// so it cannot take down its siblings.
type Scheduler struct {
	clock Clock
	tasks []*Task
	wg    sync.WaitGroup
	mu    sync.Mutex
}

// New creates a scheduler driven by the given clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock}
}

// Every schedules a function to run at the specified interval.
func (s *Scheduler) Every(interval time.Duration, name string, fn func()) *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Function: fn,
	})
	return s
}

// Run starts all scheduled tasks and blocks until the context is
// cancelled. Tasks do not fire immediately; the first run happens one
// interval after start.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	logrus.WithField("tasks", len(tasks)).Info("Scheduler starting")

	for _, task := range tasks {
		s.wg.Add(1)
		go s.runPeriodic(ctx, task)
	}

	<-ctx.Done()
	s.wg.Wait()
	logrus.Info("Scheduler stopped")
}

// RunAsync starts all scheduled tasks without blocking.
func (s *Scheduler) RunAsync(ctx context.Context) {
	go s.Run(ctx)
}

// TaskCount returns the number of scheduled tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) runPeriodic(ctx context.Context, task *Task) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.safeRun(task)
		}
	}
}

func (s *Scheduler) safeRun(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"task":  task.Name,
				"panic": r,
			}).Error("Scheduled task panicked")
		}
	}()

	task.Function()
}
