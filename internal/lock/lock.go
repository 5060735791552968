// Package lock serializes print runs per device, in process or across
// instances through Redis.
package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaiazov/PrintService/internal/domain"
)

// Locker grants exclusive use of a named device.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done. The returned
	// release function is safe to call more than once.
	Acquire(ctx context.Context, name string) (release func(), err error)
	Close() error
}

func busy(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.DeviceBusyError(fmt.Sprintf("printer %q is busy", name), err)
	}
	return domain.NewError(domain.ErrorTypeDeviceBusy, fmt.Sprintf("failed to lock printer %q", name), err)
}
