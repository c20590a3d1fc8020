package utils

import (
	"context"
	"sync"
	"time"
)

// DefaultGracePeriod bounds how long Run waits for in-flight jobs after
// cancellation.
const DefaultGracePeriod = 5 * time.Second

// WorkerPool runs indexed jobs on a fixed number of goroutines. Each worker
// waits at least delay between the starts of its own consecutive jobs, so the
// aggregate rate is roughly workers/delay with no lock shared between workers.
type WorkerPool struct {
	workers int
	delay   time.Duration
	grace   time.Duration
}

// NewWorkerPool creates a WorkerPool with the given concurrency and per-worker delay.
func NewWorkerPool(workers int, delay time.Duration) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if delay < 0 {
		delay = 0
	}
	return &WorkerPool{workers: workers, delay: delay, grace: DefaultGracePeriod}
}

// WithGracePeriod sets how long Run waits for in-flight jobs once ctx is done.
func (wp *WorkerPool) WithGracePeriod(d time.Duration) *WorkerPool {
	wp.grace = d
	return wp
}

// Run calls job(ctx, i) for every i in [0, n). The dispatcher checks ctx
// before handing out each index and stops issuing work once it is done.
// Run returns ctx.Err() if the context was cancelled at any point before all
// jobs finished; callers must then treat partial results as invalid.
func (wp *WorkerPool) Run(ctx context.Context, n int, job func(ctx context.Context, i int)) error {
	if n <= 0 {
		return ctx.Err()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := wp.workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastStart time.Time
			for i := range jobs {
				if !lastStart.IsZero() {
					if err := Sleep(ctx, wp.delay-time.Since(lastStart)); err != nil {
						return
					}
				}
				lastStart = time.Now()
				job(ctx, i)
			}
		}()
	}

dispatch:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		grace := time.NewTimer(wp.grace)
		defer grace.Stop()
		select {
		case <-done:
		case <-grace.C:
		}
	}

	return ctx.Err()
}

// StringSet is a thread-safe set of strings whose members optionally expire.
type StringSet struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewStringSet creates an empty StringSet. Members added to it are forgotten
// after ttl; a ttl of zero keeps them forever.
func NewStringSet(ttl time.Duration) *StringSet {
	return &StringSet{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

// Add returns true if v was newly added, false if already present.
func (s *StringSet) Add(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(v) {
		return false
	}
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.seen[v] = expires
	return true
}

// Contains returns true if v is in the set and has not expired.
func (s *StringSet) Contains(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(v)
}

func (s *StringSet) live(v string) bool {
	expires, ok := s.seen[v]
	if !ok {
		return false
	}
	if !expires.IsZero() && !s.now().Before(expires) {
		delete(s.seen, v)
		return false
	}
	return true
}
