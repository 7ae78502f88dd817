// Package utils holds small test-support helpers shared across packages.
package utils

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineLeakDetector fails a test when goroutines outlive the code under
// test. Start it before the test body and Check it at the end.
type GoroutineLeakDetector struct {
	t             *testing.T
	initialCount  int
	allowedGrowth int
	settle        time.Duration
}

// NewGoroutineLeakDetector creates a detector for t.
func NewGoroutineLeakDetector(t *testing.T) *GoroutineLeakDetector {
	return &GoroutineLeakDetector{
		t:      t,
		settle: 200 * time.Millisecond,
	}
}

// AllowGrowth permits n extra goroutines at check time.
func (d *GoroutineLeakDetector) AllowGrowth(n int) *GoroutineLeakDetector {
	d.allowedGrowth = n
	return d
}

// Start records the baseline goroutine count.
func (d *GoroutineLeakDetector) Start() {
	time.Sleep(d.settle)
	d.initialCount = runtime.NumGoroutine()
}

// Check compares the current goroutine count against the baseline, giving
// shutting-down goroutines time to finish.
func (d *GoroutineLeakDetector) Check() {
	deadline := time.Now().Add(2 * time.Second)
	var current int
	for {
		current = runtime.NumGoroutine()
		if current <= d.initialCount+d.allowedGrowth || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if leaked := current - d.initialCount; leaked > d.allowedGrowth {
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		d.t.Errorf("goroutine leak: started with %d, ended with %d\n%s",
			d.initialCount, current, buf[:n])
	}
}
