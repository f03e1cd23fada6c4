// Package jobmgr runs blocking work in the background and hands the caller a
// Job to await, so slow downloads and transcodes never run on a goroutine
// that other work is waiting on.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	job, err := jm.StartAsync(ctx, "retrieve:42", func(ctx context.Context) error {
//	    return download(ctx)
//	})
//	if err != nil {
//	    return err
//	}
//	if err := job.Wait(ctx); err != nil {
//	    // the work itself failed
//	}
//
// Jobs are removed from the manager automatically when they finish.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Job is a handle on a unit of work started by Manager.
type Job struct {
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job's result. It is only meaningful after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done. A cancelled ctx does not
// stop the job; use Cancel for that.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) Cancel() {
	j.cancel()
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:retrieve:42
//	error:retrieve:42:exit status 1
//	done:retrieve:42
type StatusReporter func(string)

// Manager starts and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	Reporter StatusReporter
}

// NewManager creates a new Manager. The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartAsync runs runner in its own goroutine with a context derived from
// parent and returns immediately. Names must be unique among running jobs.
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error) (*Job, error) {
	ctx, cancel := context.WithCancel(parent)
	job := &Job{Name: name, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("job '%s' is already running", name)
	}
	m.jobs[name] = job
	m.mu.Unlock()

	go func() {
		defer cancel()
		m.report("running:" + name)

		err := runner(ctx)
		if err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		delete(m.jobs, name)
		m.mu.Unlock()

		job.err = err
		close(job.done)
	}()

	return job, nil
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	job.cancel()
	return nil
}

// List returns the sorted names of active jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
