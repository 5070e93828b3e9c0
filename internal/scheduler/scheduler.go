package scheduler

import (
	"log"
	"time"
)

// Scheduler runs a job immediately and then on a fixed interval until
// stopped.
type Scheduler struct {
	name     string
	interval time.Duration
	job      func()
	stopChan chan struct{}
}

func New(name string, interval time.Duration, job func()) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		stopChan: make(chan struct{}),
	}
}

// Start launches the loop in its own goroutine.
func (s *Scheduler) Start() {
	log.Printf("[Scheduler] %s started, interval %s", s.name, s.interval)
	go s.run()
}

func (s *Scheduler) run() {
	s.job()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.job()
		case <-s.stopChan:
			log.Printf("[Scheduler] %s stopped", s.name)
			return
		}
	}
}

// Stop terminates the loop. Safe to call once.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
