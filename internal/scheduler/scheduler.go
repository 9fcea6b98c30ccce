package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type jobState struct {
	Job
	busy atomic.Bool
}

// Scheduler runs each registered job on its own ticker. A tick that fires
// while the previous run of the same job is still in progress is skipped.
type Scheduler struct {
	jobs    []*jobState
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(jobs ...Job) *Scheduler {
	s := &Scheduler{}
	for _, j := range jobs {
		s.jobs = append(s.jobs, &jobState{Job: j})
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
	}
	slog.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels all jobs and waits for in-progress runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) loop(j *jobState) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.run(s.ctx, j)
			}()
		}
	}
}

// run executes one run of j unless another run is still in progress. It
// reports whether the job ran.
func (s *Scheduler) run(ctx context.Context, j *jobState) (ran bool) {
	if !j.busy.CompareAndSwap(false, true) {
		slog.Warn("job still running, tick skipped", "job", j.Name)
		return false
	}
	defer j.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panic recovered", "job", j.Name, "panic", r)
		}
	}()

	ran = true
	start := time.Now()
	if err := j.Run(ctx); err != nil {
		slog.Error("job failed", "job", j.Name, "error", err, "duration", time.Since(start))
	}
	return ran
}
