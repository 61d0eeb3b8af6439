package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job interface that all scheduled jobs must implement
type Job interface {
	Run(ctx context.Context) error
	// Interval is the pause between the end of one run and the start of the
	// next.
	Interval() time.Duration
}

// JobScheduler runs registered jobs on their intervals until stopped
type JobScheduler struct {
	jobs    map[string]Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler() *JobScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job to the scheduler
func (s *JobScheduler) Register(name string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[name] = job
	log.Printf("✅ [SCHEDULER] Registered job: %s", name)
}

// Start begins running all registered jobs
func (s *JobScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	log.Printf("🚀 [SCHEDULER] Starting job scheduler with %d jobs", len(s.jobs))

	for name, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(name, job)
	}
}

func (s *JobScheduler) loop(name string, job Job) {
	defer s.wg.Done()

	timer := time.NewTimer(job.Interval())
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		log.Printf("▶️  [SCHEDULER] Running job: %s", name)
		start := time.Now()
		if err := job.Run(s.ctx); err != nil {
			log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", name, err)
		} else {
			log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", name, time.Since(start))
		}

		timer.Reset(job.Interval())
	}
}

// RunNow immediately runs a specific job once, outside its schedule
func (s *JobScheduler) RunNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return nil
	}
	return job.Run(s.ctx)
}

// Stop gracefully stops all jobs and waits for in-flight runs
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	log.Println("🛑 [SCHEDULER] Stopping job scheduler...")
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Println("✅ [SCHEDULER] Job scheduler stopped")
}
