package clock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSynchronousStep(t *testing.T) {
	c := NewSynchronous()
	n := 0
	c.OnTick(func() error {
		n++
		return nil
	})

	if err := c.Step(3); err != nil || n != 0 {
		t.Fatalf("stopped clock stepped %d times (err %v)", n, err)
	}

	c.Start()
	if err := c.Step(3); err != nil {
		t.Fatalf("Step error: %v", err)
	}
	if n != 3 {
		t.Errorf("steps = %d, want 3", n)
	}
}

func TestSynchronousStopsMidBatch(t *testing.T) {
	c := NewSynchronous()
	n := 0
	c.OnTick(func() error {
		n++
		if n == 2 {
			c.Stop()
		}
		return nil
	})
	c.Start()

	if err := c.Step(10); err != nil {
		t.Fatalf("Step error: %v", err)
	}
	if n != 2 || c.Running() {
		t.Errorf("steps = %d, running = %v; want 2, false", n, c.Running())
	}
}

func TestSynchronousError(t *testing.T) {
	c := NewSynchronous()
	boom := errors.New("boom")
	c.OnTick(func() error { return boom })
	c.Start()

	if err := c.Step(5); !errors.Is(err, boom) {
		t.Errorf("Step error = %v, want boom", err)
	}
	if c.Running() {
		t.Error("clock still running after error")
	}
}

func TestSynchronousDelayIsNoop(t *testing.T) {
	c := NewSynchronous()
	n := 0
	c.OnTick(func() error {
		n++
		c.Delay(time.Hour)
		return nil
	})
	c.Start()

	start := time.Now()
	if err := c.Step(3); err != nil {
		t.Fatalf("Step error: %v", err)
	}
	if n != 3 || time.Since(start) > time.Second {
		t.Errorf("steps = %d in %v", n, time.Since(start))
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRealTimeRunsUntilStopped(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	n := 0
	c.OnTick(func() error {
		n++
		if n == 5 {
			c.Stop()
		}
		return nil
	})
	c.Start()

	if err := c.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if n != 5 {
		t.Errorf("steps = %d, want 5", n)
	}
}

func TestRealTimeHonoursDelay(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	var first, second time.Time
	n := 0
	c.OnTick(func() error {
		n++
		switch n {
		case 1:
			first = time.Now()
			c.Delay(50 * time.Millisecond)
		case 2:
			second = time.Now()
			c.Stop()
		}
		return nil
	})
	c.Start()

	if err := c.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if gap := second.Sub(first); gap < 50*time.Millisecond {
		t.Errorf("second step after %v, want at least 50ms", gap)
	}
}

func TestRealTimeStopCancelsPendingDelay(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	var steps atomic.Int32
	delayed := make(chan struct{})
	c.OnTick(func() error {
		if steps.Add(1) == 1 {
			c.Delay(30 * time.Millisecond)
			close(delayed)
		}
		return nil
	})
	c.Start()

	<-delayed
	c.Stop()
	time.Sleep(100 * time.Millisecond)

	if got := steps.Load(); got != 1 {
		t.Errorf("steps = %d after stop, want 1", got)
	}
	if c.Running() {
		t.Error("clock running after Stop")
	}
}

func TestRealTimeError(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	boom := errors.New("boom")
	c.OnTick(func() error { return boom })
	c.Start()

	if err := c.Wait(waitCtx(t)); !errors.Is(err, boom) {
		t.Errorf("Wait error = %v, want boom", err)
	}
	if c.Running() {
		t.Error("clock running after error")
	}
}

func TestRealTimeStep(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	var steps atomic.Int32
	c.OnTick(func() error {
		steps.Add(1)
		c.Delay(time.Hour)
		return nil
	})

	if err := c.Step(2); err != nil || steps.Load() != 0 {
		t.Fatalf("stopped clock stepped %d times (err %v)", steps.Load(), err)
	}

	c.Start()
	for steps.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := c.Step(2); err != nil {
		t.Fatalf("Step error: %v", err)
	}
	if got := steps.Load(); got != 3 {
		t.Errorf("steps = %d, want 3", got)
	}
}

func TestRealTimeRestart(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	var steps atomic.Int32
	c.OnTick(func() error {
		steps.Add(1)
		c.Stop()
		return nil
	})

	for i := 0; i < 2; i++ {
		c.Start()
		if err := c.Wait(waitCtx(t)); err != nil {
			t.Fatalf("Wait error: %v", err)
		}
	}
	if got := steps.Load(); got != 2 {
		t.Errorf("steps = %d, want 2", got)
	}
}

func TestRealTimeCloseIsIdempotent(t *testing.T) {
	c := NewRealTime()
	c.Close()
	c.Close()
	if err := c.Step(1); err != nil {
		t.Errorf("Step after Close = %v", err)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	c := NewRealTime()
	defer c.Close()

	c.OnTick(func() error {
		c.Delay(time.Hour)
		return nil
	})
	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want deadline exceeded", err)
	}
}
