/*
lock.go - Run-locks for late-fee sweeps

PURPOSE:
  Two sweeps racing on the same invoice must not both write a fee. Every
  sweep runs under a Locker: Local for a single process, Redis when several
  server replicas share one invoice store.

USAGE:
  release, err := locker.Acquire(ctx)
  if err != nil {
      return err
  }
  defer release()

SEE ALSO:
  - billing/accrual.go: the only caller
  - redis.go: distributed implementation
*/

// Package lock serializes late-fee sweeps.
package lock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/warp/freight-engine/generic"
)

// Locker hands out an exclusive hold. Acquire blocks until the hold is
// granted or ctx is done; release must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// =============================================================================
// LOCAL - In-process lock
// =============================================================================

// Local is a context-aware mutex backed by a weight-1 semaphore. The zero
// value is not usable; use NewLocal.
type Local struct {
	sem *semaphore.Weighted
}

func NewLocal() *Local {
	return &Local{sem: semaphore.NewWeighted(1)}
}

func (l *Local) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrLockNotAcquired, err)
	}
	return l.releaser(), nil
}

// TryAcquire returns ok=false immediately when the lock is held.
func (l *Local) TryAcquire() (release func(), ok bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	return l.releaser(), true
}

// releaser gives the weight back once, however often it is called.
func (l *Local) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { l.sem.Release(1) }) }
}

// =============================================================================
// CHAIN - Local first, then distributed
// =============================================================================

// Chain acquires every locker in order and releases in reverse.
type Chain []Locker

func (c Chain) Acquire(ctx context.Context) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		release, err := l.Acquire(ctx)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
