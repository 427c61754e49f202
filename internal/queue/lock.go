package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const defaultLockRetry = 50 * time.Millisecond

// ErrLockNotHeld is returned by Unlock when the lock was not acquired.
var ErrLockNotHeld = errors.New("queue lock not held")

// Lock serializes queue mutations. Goroutines take turns on a one-slot
// semaphore; processes take turns on an advisory lock file. It is not
// reentrant.
type Lock struct {
	sem   chan struct{}
	file  *flock.Flock
	retry time.Duration
}

// NewLock returns a lock backed by the file at path. An empty path yields an
// in-process lock only.
func NewLock(path string, retry time.Duration) *Lock {
	if retry <= 0 {
		retry = defaultLockRetry
	}
	l := &Lock{sem: make(chan struct{}, 1), retry: retry}
	if strings.TrimSpace(path) != "" {
		l.file = flock.New(path)
	}
	return l
}

// Lock blocks until the lock is held or ctx is done.
func (l *Lock) Lock(ctx context.Context) error {
	ctx = ensureContext(ctx)
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire queue lock: %w", ctx.Err())
	}
	if l.file == nil {
		return nil
	}
	locked, err := l.file.TryLockContext(ctx, l.retry)
	if err != nil || !locked {
		<-l.sem
		if err == nil {
			err = ctx.Err()
		}
		return fmt.Errorf("acquire queue lock file %s: %w", l.file.Path(), err)
	}
	return nil
}

// Unlock releases the lock. The file lock is dropped before the semaphore
// slot so the next holder never observes a stale file lock.
func (l *Lock) Unlock() error {
	if len(l.sem) == 0 {
		return ErrLockNotHeld
	}
	var err error
	if l.file != nil {
		if unlockErr := l.file.Unlock(); unlockErr != nil {
			err = fmt.Errorf("release queue lock file %s: %w", l.file.Path(), unlockErr)
		}
	}
	<-l.sem
	return err
}
