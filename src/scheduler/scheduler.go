package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/apimgr/weatherio/src/server/metrics"
)

// Logger is the subset of the application logger the scheduler writes to
type Logger interface {
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Task represents a scheduled task
type Task struct {
	Name     string
	Schedule string // Cron expression: "0 0 4 * * 3", "@hourly", "@every 5m"
	Fn       func() error
	entryID  cron.EntryID
	enabled  bool
	running  bool
	lastRun  *time.Time
	lastErr  error
	mu       sync.Mutex
}

// TaskStatus is a snapshot of one task
type TaskStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Enabled   bool       `json:"enabled"`
	Running   bool       `json:"running"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	NextRun   time.Time  `json:"nextRun"`
}

// Scheduler manages scheduled tasks using robfig/cron
type Scheduler struct {
	cron   *cron.Cron
	tasks  map[string]*Task
	logger Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// parser accepts 5 field and 6 field (leading seconds) expressions plus
// descriptors such as @daily and @every 5m
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewScheduler creates a new scheduler instance
func NewScheduler(logger Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		tasks:  make(map[string]*Task),
		logger: logger,
	}
}

// AddTask adds a new task with a cron schedule
func (s *Scheduler) AddTask(name string, schedule string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task '%s' already exists", name)
	}

	task := &Task{
		Name:     name,
		Schedule: schedule,
		Fn:       fn,
		enabled:  true,
	}

	entryID, err := s.cron.AddFunc(schedule, func() { s.executeTask(task) })
	if err != nil {
		return fmt.Errorf("failed to add task '%s' with schedule '%s': %w", name, schedule, err)
	}

	task.entryID = entryID
	s.tasks[name] = task
	return nil
}

// AddTaskInterval adds a task with a time.Duration interval
func (s *Scheduler) AddTaskInterval(name string, interval time.Duration, fn func() error) error {
	return s.AddTask(name, fmt.Sprintf("@every %s", interval.String()), fn)
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.mu.RLock()
	n := len(s.tasks)
	s.mu.RUnlock()

	s.cron.Start()
	s.logger.Info("Scheduler started (%d scheduled tasks)", n)
}

// Stop stops the scheduler and waits for running tasks
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// executeTask runs a task unless it is disabled or still running
func (s *Scheduler) executeTask(task *Task) {
	task.mu.Lock()
	if !task.enabled || task.running {
		task.mu.Unlock()
		return
	}
	task.running = true
	task.mu.Unlock()

	start := time.Now()
	err := task.Fn()
	end := time.Now()
	elapsed := end.Sub(start)

	task.mu.Lock()
	task.running = false
	task.lastRun = &end
	task.lastErr = err
	task.mu.Unlock()

	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("Task '%s' failed after %v: %v", task.Name, elapsed, err)
	} else {
		s.logger.Debug("Task '%s' completed in %v", task.Name, elapsed)
	}
	metrics.RecordSchedulerTask(task.Name, status, elapsed)
}

// GetTaskStatus returns the status of all tasks ordered by name
func (s *Scheduler) GetTaskStatus() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := make([]TaskStatus, 0, len(s.tasks))
	for _, task := range s.tasks {
		status = append(status, s.status(task))
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })
	return status
}

func (s *Scheduler) status(task *Task) TaskStatus {
	task.mu.Lock()
	defer task.mu.Unlock()

	st := TaskStatus{
		Name:     task.Name,
		Schedule: task.Schedule,
		Enabled:  task.enabled,
		Running:  task.running,
		LastRun:  task.lastRun,
	}
	if task.lastErr != nil {
		st.LastError = task.lastErr.Error()
	}
	if entry := s.cron.Entry(task.entryID); entry.ID != 0 {
		st.NextRun = entry.Next
	}
	return st
}

// EnableTask enables a task by name
func (s *Scheduler) EnableTask(taskName string) error {
	return s.setEnabled(taskName, true)
}

// DisableTask disables a task by name
func (s *Scheduler) DisableTask(taskName string) error {
	return s.setEnabled(taskName, false)
}

func (s *Scheduler) setEnabled(taskName string, enabled bool) error {
	task := s.GetTask(taskName)
	if task == nil {
		return fmt.Errorf("task '%s' not found", taskName)
	}

	task.mu.Lock()
	task.enabled = enabled
	task.mu.Unlock()
	s.logger.Info("Task '%s' enabled=%t", taskName, enabled)
	return nil
}

// TriggerTask runs a task immediately in the background
func (s *Scheduler) TriggerTask(taskName string) error {
	task := s.GetTask(taskName)
	if task == nil {
		return fmt.Errorf("task '%s' not found", taskName)
	}

	s.logger.Debug("Manually triggering task '%s'", taskName)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeTask(task)
	}()
	return nil
}

// GetTask returns a task by name
func (s *Scheduler) GetTask(taskName string) *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tasks[taskName]
}
