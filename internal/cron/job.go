package cron

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var ErrJobNotFound = errors.New("job not found")

// JobNotifier is told when a job marked NotifyOnFailure fails.
type JobNotifier interface {
	SendJobNotification(jobName string, status string, duration time.Duration, details string) error
}

type scheduledJob struct {
	id              cron.EntryID
	schedule        string
	taskName        string
	enabled         bool
	description     string
	notifyOnFailure bool
}

type Scheduler struct {
	cron     *cron.Cron
	logger   *logrus.Logger
	notifier JobNotifier

	mu      sync.RWMutex
	jobs    map[string]scheduledJob
	tasks   map[string]func() error
	started bool

	maxConcurrent  int
	activeJobs     int
	activeJobsLock sync.Mutex
}

func NewScheduler(logger *logrus.Logger, config types.JobConfig) *Scheduler {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		logger:        logger,
		maxConcurrent: maxConcurrent,
		jobs:          make(map[string]scheduledJob),
		tasks:         make(map[string]func() error),
	}
}

// SetNotifier enables failure notifications. A nil notifier disables them.
func (s *Scheduler) SetNotifier(notifier JobNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = notifier
}

func (s *Scheduler) RegisterTask(name string, task func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[name] = task
}

// LoadPredefinedJobs replaces all scheduled jobs. Disabled jobs are listed
// but never run.
func (s *Scheduler) LoadPredefinedJobs(jobs []types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, job := range s.jobs {
		if job.enabled {
			s.cron.Remove(job.id)
		}
		delete(s.jobs, name)
	}

	for _, job := range jobs {
		if !job.Enabled {
			s.logger.Infof("Skipping disabled job: %s", job.Name)
			s.jobs[job.Name] = scheduledJob{
				schedule:    job.Schedule,
				taskName:    job.TaskName,
				description: job.Description,
			}
			continue
		}

		task, exists := s.tasks[job.TaskName]
		if !exists {
			return fmt.Errorf("task %s not registered", job.TaskName)
		}

		id, err := s.cron.AddFunc(job.Schedule, s.wrap(job, task))
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}

		s.jobs[job.Name] = scheduledJob{
			id:              id,
			schedule:        job.Schedule,
			taskName:        job.TaskName,
			enabled:         true,
			description:     job.Description,
			notifyOnFailure: job.NotifyOnFailure,
		}

		s.logger.WithFields(logrus.Fields{
			"job_name":    job.Name,
			"schedule":    job.Schedule,
			"task":        job.TaskName,
			"description": job.Description,
		}).Info("Job scheduled successfully")
	}

	return nil
}

func (s *Scheduler) wrap(job types.Job, task func() error) func() {
	return func() {
		s.activeJobsLock.Lock()
		if s.activeJobs >= s.maxConcurrent {
			s.activeJobsLock.Unlock()
			s.logger.Warnf("Max concurrent jobs reached, skipping job: %s", job.Name)
			return
		}
		s.activeJobs++
		active := s.activeJobs
		s.activeJobsLock.Unlock()

		defer func() {
			s.activeJobsLock.Lock()
			s.activeJobs--
			s.activeJobsLock.Unlock()
		}()

		s.logger.WithFields(logrus.Fields{
			"job_name":    job.Name,
			"task":        job.TaskName,
			"active_jobs": active,
		}).Info("Starting job execution")

		start := time.Now()
		err := task()
		duration := time.Since(start)

		if err == nil {
			s.logger.WithFields(logrus.Fields{
				"job_name": job.Name,
				"duration": formatDuration(duration),
			}).Info("Job execution completed successfully")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"job_name": job.Name,
			"error":    err.Error(),
			"duration": formatDuration(duration),
		}).Error("Job execution failed")

		s.mu.RLock()
		notifier := s.notifier
		s.mu.RUnlock()
		if !job.NotifyOnFailure || notifier == nil {
			return
		}
		if err := notifier.SendJobNotification(job.Name, "failed", duration, err.Error()); err != nil {
			s.logger.WithError(err).Errorf("Failed to send failure notification for job %s", job.Name)
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

func (s *Scheduler) GetJobStatus(name string) (bool, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[name]
	if !exists {
		return false, "", fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return job.enabled, job.description, nil
}

// GetJob returns a job with its next run time when the scheduler is running.
func (s *Scheduler) GetJob(name string) (types.Job, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[name]
	if !exists {
		return types.Job{}, time.Time{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	var next time.Time
	if job.enabled && s.started {
		next = s.cron.Entry(job.id).Next
	}
	return job.toType(name), next, nil
}

// ListJobs returns every loaded job sorted by name.
func (s *Scheduler) ListJobs() []types.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]types.Job, 0, len(s.jobs))
	for name, job := range s.jobs {
		jobs = append(jobs, job.toType(name))
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Name < jobs[j].Name
	})
	return jobs
}

func (j scheduledJob) toType(name string) types.Job {
	return types.Job{
		Name:            name,
		Schedule:        j.schedule,
		TaskName:        j.taskName,
		Enabled:         j.enabled,
		Description:     j.description,
		NotifyOnFailure: j.notifyOnFailure,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("Scheduler started...")

	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ctx := s.cron.Stop()
	s.started = false
	s.mu.Unlock()

	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
