package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

type fakeSweeper struct{ calls atomic.Int32 }

func (f *fakeSweeper) Sweep() int {
	f.calls.Add(1)
	return 2
}

type fakeReloader struct {
	enabled bool
	err     error
	calls   atomic.Int32
}

func (f *fakeReloader) Enabled() bool { return f.enabled }

func (f *fakeReloader) Reload() error {
	f.calls.Add(1)
	return f.err
}

type fakeRotator struct{ calls atomic.Int32 }

func (f *fakeRotator) RotateLogs() error {
	f.calls.Add(1)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddTask(t *testing.T) {
	s := NewScheduler(nopLogger{})

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"five fields", "0 2 * * *", false},
		{"six fields", "0 0 4 * * 3", false},
		{"descriptor", "@daily", false},
		{"interval", "@every 5m", false},
		{"invalid", "not a schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddTask(tt.name, tt.schedule, func() error { return nil })
			if (err != nil) != tt.wantErr {
				t.Errorf("AddTask(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}

	if err := s.AddTask("daily", "@daily", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTask("daily", "@daily", func() error { return nil }); err == nil {
		t.Error("duplicate task name accepted")
	}
}

func TestTriggerTask(t *testing.T) {
	s := NewScheduler(nopLogger{})

	var runs atomic.Int32
	failing := errors.New("boom")
	if err := s.AddTask("job", "@yearly", func() error {
		runs.Add(1)
		return failing
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.TriggerTask("missing"); err == nil {
		t.Error("TriggerTask on unknown task returned nil")
	}

	if err := s.TriggerTask("job"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.GetTaskStatus()[0].LastRun != nil })

	st := s.GetTaskStatus()[0]
	if st.LastError != "boom" || runs.Load() != 1 {
		t.Errorf("status = %+v, runs = %d", st, runs.Load())
	}

	if err := s.DisableTask("job"); err != nil {
		t.Fatal(err)
	}
	s.TriggerTask("job")
	s.Stop()
	if runs.Load() != 1 {
		t.Errorf("disabled task ran, runs = %d", runs.Load())
	}
}

func TestRegisterDefaults(t *testing.T) {
	sweeper := &fakeSweeper{}
	rotator := &fakeRotator{}

	tests := []struct {
		name  string
		cfg   Config
		tasks []string
	}{
		{
			name:  "all",
			cfg:   Config{Sessions: sweeper, GeoIP: &fakeReloader{enabled: true}, GeoIPSchedule: "@weekly", Logs: rotator, LogSchedule: "@daily"},
			tasks: []string{TaskGeoIPReload, TaskLogRotate, TaskSessionSweep},
		},
		{
			name:  "geoip disabled",
			cfg:   Config{Sessions: sweeper, GeoIP: &fakeReloader{}, GeoIPSchedule: "@weekly"},
			tasks: []string{TaskSessionSweep},
		},
		{
			name:  "no rotation schedule",
			cfg:   Config{Logs: rotator},
			tasks: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(nopLogger{})
			if err := s.RegisterDefaults(tt.cfg); err != nil {
				t.Fatal(err)
			}

			status := s.GetTaskStatus()
			if len(status) != len(tt.tasks) {
				t.Fatalf("tasks = %+v, want %v", status, tt.tasks)
			}
			for i, name := range tt.tasks {
				if status[i].Name != name {
					t.Errorf("task %d = %s, want %s", i, status[i].Name, name)
				}
			}
		})
	}
}

func TestDefaultTasksRun(t *testing.T) {
	sweeper := &fakeSweeper{}
	reloader := &fakeReloader{enabled: true, err: errors.New("corrupt database")}
	rotator := &fakeRotator{}

	s := NewScheduler(nopLogger{})
	err := s.RegisterDefaults(Config{
		Sessions: sweeper,
		GeoIP:    reloader, GeoIPSchedule: "@weekly",
		Logs: rotator, LogSchedule: "@daily",
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{TaskSessionSweep, TaskGeoIPReload, TaskLogRotate} {
		if err := s.TriggerTask(name); err != nil {
			t.Fatal(err)
		}
	}
	s.Stop()

	if sweeper.calls.Load() != 1 || reloader.calls.Load() != 1 || rotator.calls.Load() != 1 {
		t.Errorf("calls: sweep %d reload %d rotate %d", sweeper.calls.Load(), reloader.calls.Load(), rotator.calls.Load())
	}
	if st := s.GetTask(TaskGeoIPReload); st == nil {
		t.Fatal("geoip task missing")
	}
	for _, st := range s.GetTaskStatus() {
		if st.Name == TaskGeoIPReload && st.LastError != "geoip reload: corrupt database" {
			t.Errorf("geoip status = %+v", st)
		}
	}
}
