package utils

import (
	"context"
	"fmt"
	"time"
)

// RunWithTimeout runs fn with a context that is cancelled after timeout.
// It returns fn's error, or a timeout error if fn has not returned in time.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- fn(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("run timed out after %v", timeout)
	}
}
