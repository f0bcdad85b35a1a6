// Package doltutil holds helpers shared by the embedded Dolt code paths.
package doltutil

import (
	"fmt"
	"time"
)

// CloseTimeout bounds how long a Dolt engine shutdown may take.
const CloseTimeout = 5 * time.Second

// CloseWithTimeout runs closeFn and gives up after timeout (CloseTimeout when
// zero). The embedded engine can hang on shutdown; a hung close is reported
// as an error and left running in the background.
func CloseWithTimeout(name string, timeout time.Duration, closeFn func() error) error {
	if timeout <= 0 {
		timeout = CloseTimeout
	}
	done := make(chan error, 1)
	go func() {
		done <- closeFn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%s close timed out after %v", name, timeout)
	}
}
