package test

import (
	"os"
	"runtime/pprof"
	"time"
)

const testTimeout = 30 * time.Second

// Timeout implements a test level timeout. If the returned cancel function is
// not called within the timeout, the goroutine stacks are dumped and the test
// binary panics.
func Timeout() func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(testTimeout):
			_ = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)

			panic("test timeout")

		case <-done:
		}
	}()

	return func() {
		close(done)
	}
}
