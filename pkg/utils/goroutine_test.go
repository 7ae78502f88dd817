package utils

import (
	"testing"
	"time"
)

func TestGoroutineLeakDetectorCleanRun(t *testing.T) {
	detector := NewGoroutineLeakDetector(t)
	detector.Start()

	done := make(chan struct{})
	go func() {
		close(done)
	}()
	<-done

	detector.Check()
}

func TestGoroutineLeakDetectorAllowsGrowth(t *testing.T) {
	detector := NewGoroutineLeakDetector(t).AllowGrowth(1)
	detector.Start()

	stop := make(chan struct{})
	go func() {
		<-stop
	}()
	t.Cleanup(func() {
		close(stop)
		time.Sleep(50 * time.Millisecond)
	})

	detector.Check()
}
