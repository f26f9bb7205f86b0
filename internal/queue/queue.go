// Package queue provides a bounded worker pool for CPU-heavy jobs so they
// run with fixed parallelism instead of one goroutine per request.
package queue

import (
	"log"
	"sync"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

type Manager struct {
	JobQueue   chan Job
	MaxWorkers int
	wg         sync.WaitGroup
}

func NewManager(queueSize int, maxWorkers int) *Manager {
	manager := &Manager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
	}
	manager.startWorkers()
	return manager
}

func (m *Manager) startWorkers() {
	for i := 0; i < m.MaxWorkers; i++ {
		m.wg.Add(1)
		go func(workerID int) {
			defer m.wg.Done()
			for job := range m.JobQueue {
				err := job.Fn()
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			log.Printf("queue: worker %d stopped", workerID)
		}(i)
	}
}

func (m *Manager) Enqueue(job Job) {
	m.JobQueue <- job
}

func (m *Manager) Shutdown() {
	close(m.JobQueue)
	m.wg.Wait()
}
