// Package schedule runs registered tools on recurring cron schedules.
// Scheduled runs are unattended, so the scheduler only admits tools
// that are idempotent and do not require confirmation; everything else
// is rejected at Add time. Jobs invoke through the engine like any
// other caller.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/nounverse/verbs/pkg/tool"
)

// specParser accepts standard five-field cron expressions plus
// descriptors such as "@hourly" and "@every 30s".
var specParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is one recurring invocation.
type Job struct {
	ID        string                 `json:"id"`
	Tool      string                 `json:"tool"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Spec      string                 `json:"spec"`
	Caller    tool.Caller            `json:"caller"`
	CreatedAt time.Time              `json:"created_at"`
	State     JobState               `json:"state"`

	schedule cron.Schedule
}

// JobState tracks the run history of a job.
type JobState struct {
	Running           bool      `json:"running"`
	NextRunAt         time.Time `json:"next_run_at"`
	LastRunAt         time.Time `json:"last_run_at,omitempty"`
	LastStatus        string    `json:"last_status,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	Runs              int       `json:"runs"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
}

// AddParams describes a job to add.
type AddParams struct {
	Tool   string
	Args   map[string]interface{}
	Spec   string
	Caller tool.Caller
}

// Scheduler dispatches jobs to the engine when their schedule fires.
type Scheduler struct {
	engine *tool.Engine

	mu      sync.RWMutex
	jobs    map[string]*Job
	timers  map[string]*time.Timer
	started bool
	stopped bool
}

// NewScheduler creates a scheduler over the engine. Jobs added before
// Start are held until Start; jobs added after are scheduled directly.
func NewScheduler(engine *tool.Engine) *Scheduler {
	return &Scheduler{
		engine: engine,
		jobs:   make(map[string]*Job),
		timers: make(map[string]*time.Timer),
	}
}

// Add validates and registers a job. The tool must exist, must not
// require confirmation, and must be declared idempotent.
func (s *Scheduler) Add(params AddParams) (Job, error) {
	def, err := s.engine.Registry().Get(params.Tool)
	if err != nil {
		return Job{}, fmt.Errorf("cannot schedule: %w", err)
	}
	if def.RequiresConfirmation {
		return Job{}, fmt.Errorf("cannot schedule %s: tool requires confirmation and cannot run unattended", def.ID)
	}
	if !def.Idempotent {
		return Job{}, fmt.Errorf("cannot schedule %s: tool is not idempotent", def.ID)
	}

	sched, err := specParser.Parse(params.Spec)
	if err != nil {
		return Job{}, fmt.Errorf("invalid schedule spec %q: %w", params.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Job{}, fmt.Errorf("scheduler is stopped")
	}

	job := &Job{
		ID:        uuid.New().String(),
		Tool:      params.Tool,
		Args:      params.Args,
		Spec:      params.Spec,
		Caller:    params.Caller,
		CreatedAt: time.Now(),
		schedule:  sched,
	}
	job.State.NextRunAt = sched.Next(time.Now())

	s.jobs[job.ID] = job
	if s.started {
		s.scheduleJobLocked(job)
	}

	log.Info().
		Str("job_id", job.ID).
		Str("tool", job.Tool).
		Str("spec", job.Spec).
		Msg("Job added")

	return *job, nil
}

// Remove deletes a job and cancels its timer.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	s.cancelJobLocked(id)
	delete(s.jobs, id)

	log.Info().
		Str("job_id", id).
		Str("tool", job.Tool).
		Msg("Job removed")

	return nil
}

// Get returns a snapshot of one job.
func (s *Scheduler) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, oldest first.
func (s *Scheduler) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Start schedules all jobs. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	for _, job := range s.jobs {
		s.scheduleJobLocked(job)
	}

	log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop cancels all timers. A stopped scheduler rejects new jobs and
// runs nothing further; in-flight invocations finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	for id := range s.timers {
		s.cancelJobLocked(id)
	}

	log.Info().Msg("Scheduler stopped")
}

// RunNow triggers one job immediately, outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	_, exists := s.jobs[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	go s.execute(id)
	return nil
}

// scheduleJobLocked arms the timer for a job's next firing, replacing
// any existing timer. Callers must hold the lock.
func (s *Scheduler) scheduleJobLocked(job *Job) {
	s.cancelJobLocked(job.ID)

	next := job.schedule.Next(time.Now())
	job.State.NextRunAt = next

	delay := time.Until(next)
	if delay < 0 {
		delay = 0
	}

	id := job.ID
	s.timers[id] = time.AfterFunc(delay, func() {
		s.execute(id)
	})

	log.Debug().
		Str("job_id", id).
		Time("next_run", next).
		Msg("Job scheduled")
}

// cancelJobLocked stops a job's timer. Callers must hold the lock.
func (s *Scheduler) cancelJobLocked(id string) {
	if timer, exists := s.timers[id]; exists {
		timer.Stop()
		delete(s.timers, id)
	}
}

// execute runs one firing of a job and reschedules it.
func (s *Scheduler) execute(id string) {
	s.mu.Lock()
	job, exists := s.jobs[id]
	if !exists || s.stopped {
		s.mu.Unlock()
		return
	}
	if job.State.Running {
		s.mu.Unlock()
		log.Debug().Str("job_id", id).Msg("Job still running, skipping firing")
		return
	}
	job.State.Running = true
	s.mu.Unlock()

	startedAt := time.Now()
	result := s.engine.InvokeWithRetry(context.Background(), tool.Request{
		Tool:   job.Tool,
		Args:   job.Args,
		Caller: job.Caller,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	job.State.Running = false
	job.State.LastRunAt = startedAt
	job.State.Runs++

	if result.Success {
		job.State.LastStatus = "ok"
		job.State.LastError = ""
		job.State.ConsecutiveErrors = 0

		log.Debug().
			Str("job_id", id).
			Str("tool", job.Tool).
			Dur("duration", result.Duration).
			Msg("Scheduled invocation completed")
	} else {
		job.State.LastStatus = "error"
		job.State.LastError = result.Error.Error()
		job.State.ConsecutiveErrors++

		log.Error().
			Str("job_id", id).
			Str("tool", job.Tool).
			Str("error_code", string(result.Error.Code)).
			Int("consecutive_errors", job.State.ConsecutiveErrors).
			Msg("Scheduled invocation failed")
	}

	if !s.started || s.stopped {
		return
	}
	s.scheduleJobLocked(job)
}
