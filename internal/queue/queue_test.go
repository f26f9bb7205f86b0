package queue

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestJobsRunAndReportErrors(t *testing.T) {
	m := NewManager(4, 2)

	errc := make(chan error, 1)
	m.Enqueue(Job{
		Fn:   func() error { return nil },
		Errc: errc,
	})
	if err := <-errc; err != nil {
		t.Fatalf("job error = %v, want nil", err)
	}

	want := errors.New("boom")
	m.Enqueue(Job{
		Fn:   func() error { return want },
		Errc: errc,
	})
	if err := <-errc; err != want {
		t.Fatalf("job error = %v, want %v", err, want)
	}

	m.Shutdown()
}

func TestShutdownWaitsForQueuedJobs(t *testing.T) {
	m := NewManager(8, 1)

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		m.Enqueue(Job{Fn: func() error {
			ran.Add(1)
			return nil
		}})
	}

	m.Shutdown()
	if got := ran.Load(); got != 8 {
		t.Fatalf("ran %d jobs, want 8", got)
	}
}
