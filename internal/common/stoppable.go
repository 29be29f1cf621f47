package common

import (
	"context"
	"time"
)

// Stoppable is implemented by every long-running collaborator onvifd
// shuts down on SIGINT/SIGTERM (the worker pool, the health server).
type Stoppable interface {
	Stop(ctx context.Context) error
}

// StopWithTimeout bounds a shutdown call so one slow collaborator can't
// hang the whole process past timeout.
func StopWithTimeout(service Stoppable, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return service.Stop(ctx)
}
