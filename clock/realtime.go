package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// queueSize bounds the scheduler queue. At most one automatic continuation
// is pending per run, so the buffer only absorbs Step requests.
const queueSize = 64

// RealTime is a self-scheduling clock. Every step runs on one scheduler
// goroutine that consumes continuations from a queue; a delay requested
// by a step turns the next continuation into a timer.
type RealTime struct {
	queue chan func()
	quit  chan struct{}

	mu      sync.Mutex
	step    func() error
	running bool
	gen     uint64 // bumped by Start and Stop; stale continuations are dropped
	delay   time.Duration
	delayed bool
	timer   *time.Timer
	done    chan struct{} // closed when the current run stops
	err     error

	closeOnce sync.Once
}

// NewRealTime returns a stopped real-time clock with its scheduler
// goroutine running. Call Close to release it.
func NewRealTime() *RealTime {
	done := make(chan struct{})
	close(done)
	c := &RealTime{
		queue: make(chan func(), queueSize),
		quit:  make(chan struct{}),
		done:  done,
	}
	go c.loop()
	return c
}

// loop executes continuations sequentially on the scheduler goroutine.
func (c *RealTime) loop() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-c.quit:
			return
		}
	}
}

// post enqueues fn, blocking until there is room or the clock is closed.
func (c *RealTime) post(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.quit:
	}
}

// repost enqueues fn from the scheduler goroutine itself, which must never
// block on its own queue.
func (c *RealTime) repost(fn func()) {
	select {
	case c.queue <- fn:
	default:
		go c.post(fn)
	}
}

func (c *RealTime) OnTick(step func() error) {
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
}

// Start begins a new run. The first step is scheduled immediately.
func (c *RealTime) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.gen++
	c.err = nil
	c.delayed = false
	c.done = make(chan struct{})
	gen := c.gen
	c.mu.Unlock()

	c.post(func() { c.tick(gen) })
}

// Stop ends the current run and cancels any pending continuation.
func (c *RealTime) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

func (c *RealTime) stopLocked() {
	if !c.running {
		return
	}
	c.running = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	close(c.done)
}

func (c *RealTime) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Delay makes the next automatic continuation wait d.
func (c *RealTime) Delay(d time.Duration) {
	c.mu.Lock()
	c.delay = d
	c.delayed = true
	c.mu.Unlock()
}

// tick runs one step of run gen and schedules the next one.
func (c *RealTime) tick(gen uint64) {
	c.mu.Lock()
	if !c.running || gen != c.gen || c.step == nil {
		c.mu.Unlock()
		return
	}
	step := c.step
	c.mu.Unlock()

	err := c.run(step)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.fail(gen, err)
		return
	}
	if !c.running || gen != c.gen {
		return
	}
	if c.delayed {
		c.delayed = false
		c.timer = time.AfterFunc(c.delay, func() {
			c.post(func() { c.tick(gen) })
		})
		return
	}
	c.repost(func() { c.tick(gen) })
}

// fail records err for the run that produced it and stops that run.
// The step itself may already have stopped the clock.
func (c *RealTime) fail(gen uint64, err error) {
	switch {
	case c.running && gen == c.gen:
		c.err = err
		c.stopLocked()
	case !c.running && gen+1 == c.gen:
		c.err = err
	}
}

// run calls step, turning a panic into an error.
func (c *RealTime) run(step func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return step()
}

// Step runs up to n steps on the scheduler goroutine and waits for them.
// It must not be called from inside the step callback.
func (c *RealTime) Step(n int) error {
	for i := 0; i < n; i++ {
		result := make(chan error, 1)
		c.post(func() {
			c.mu.Lock()
			if !c.running || c.step == nil {
				c.mu.Unlock()
				result <- errStopped
				return
			}
			gen, step := c.gen, c.step
			c.mu.Unlock()

			err := c.run(step)

			c.mu.Lock()
			c.delayed = false
			if err != nil {
				c.fail(gen, err)
			}
			c.mu.Unlock()
			result <- err
		})

		select {
		case err := <-result:
			if err == errStopped {
				return nil
			}
			if err != nil {
				return err
			}
		case <-c.quit:
			return nil
		}
	}
	return nil
}

var errStopped = errors.New("clock stopped")

// Wait blocks until the current run stops and returns the error that
// stopped it, if any.
func (c *RealTime) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops the clock and shuts the scheduler goroutine down.
func (c *RealTime) Close() {
	c.closeOnce.Do(func() {
		c.Stop()
		close(c.quit)
	})
}
