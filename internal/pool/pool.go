// Package pool implements a fixed-size shared-queue worker pool: a fixed
// number of long-lived goroutines pull jobs off one shared channel, and a
// worker that panics is replaced rather than allowed to shrink the pool.
package pool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Job is a unit of work submitted to the pool.
type Job func()

// message is what travels over the shared queue: either a job to run, or a
// poison pill telling the receiving worker to exit.
type message struct {
	job  Job
	term bool
}

// Pool is a fixed-size pool of goroutines draining one shared channel of
// jobs. A worker that panics while running a job is replaced by a freshly
// spawned one before the panicking goroutine exits, so Spawn's throughput
// guarantee survives a misbehaving job.
type Pool struct {
	jobs chan message
	wg   sync.WaitGroup
	size int
	log  *zap.SugaredLogger
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger overrides the pool's logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pool) { p.log = log }
}

// New starts a pool of size worker goroutines, all draining the same
// unbuffered job channel. size must be positive.
func New(size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	p := &Pool{
		jobs: make(chan message),
		size: size,
		log:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		p.spawnWorker()
	}

	return p, nil
}

// spawnWorker starts one worker goroutine draining the shared queue. It is
// called once per worker at construction, and again by a worker's own
// recover to replace itself after a panicking job.
func (p *Pool) spawnWorker() {
	p.wg.Add(1)
	go p.workerLoop()
}

func (p *Pool) workerLoop() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("worker recovered from panicking job, respawning replacement", "panic", r)
			p.spawnWorker()
		}
		p.wg.Done()
	}()

	for msg := range p.jobs {
		if msg.term {
			return
		}
		msg.job()
	}
}

// Spawn enqueues job to be run by whichever worker picks it up next. Spawn
// blocks until a worker is available to accept the job, since the queue is
// unbuffered; callers that need fire-and-forget semantics should run Spawn
// itself in its own goroutine.
func (p *Pool) Spawn(job Job) {
	p.jobs <- message{job: job}
}

// Close sends one termination message per worker and waits for every
// worker goroutine, including any panic-spawned replacements, to exit. Jobs
// queued before Close is called are still delivered; Spawn must not be
// called again afterward.
func (p *Pool) Close() {
	for i := 0; i < p.size; i++ {
		p.jobs <- message{term: true}
	}
	p.wg.Wait()
}
