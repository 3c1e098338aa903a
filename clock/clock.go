// Package clock decides when the virtual machine executes its next
// instruction. A clock never changes what an instruction does, only when
// the transition is observed.
package clock

import "time"

// Clock drives a single step callback.
type Clock interface {
	// OnTick registers the step callback, replacing any previous one.
	OnTick(step func() error)

	// Start enters the running state. Stop leaves it; it is safe to call
	// from inside the step callback.
	Start()
	Stop()
	Running() bool

	// Step runs up to n steps, stopping early when the clock stops. The
	// first error stops the clock and is returned.
	Step(n int) error

	// Delay asks for the next automatic step to wait d.
	Delay(d time.Duration)
}

// Synchronous is a caller-driven clock. Delays are ignored, so execution is
// deterministic and independent of wall time.
type Synchronous struct {
	step    func() error
	running bool
}

// NewSynchronous returns a stopped synchronous clock.
func NewSynchronous() *Synchronous {
	return &Synchronous{}
}

func (c *Synchronous) OnTick(step func() error) { c.step = step }
func (c *Synchronous) Start()                   { c.running = true }
func (c *Synchronous) Stop()                    { c.running = false }
func (c *Synchronous) Running() bool            { return c.running }
func (c *Synchronous) Delay(time.Duration)      {}

// Step executes up to n steps on the calling goroutine.
func (c *Synchronous) Step(n int) error {
	if c.step == nil {
		return nil
	}
	for i := 0; i < n && c.running; i++ {
		if err := c.step(); err != nil {
			c.running = false
			return err
		}
	}
	return nil
}
