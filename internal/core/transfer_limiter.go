package core

// transfer_limiter.go serialises whole-table transfers.
//
// Imports and exports read or rewrite entire tables, so by default only one
// may run at a time. A caller that cannot get a slot within maxWait fails
// with ErrTransferBusy instead of queueing forever. WaitForDrain lets the
// server finish running transfers before it shuts down.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTransferBusy is returned when every transfer slot stays occupied for
// the whole wait timeout.
var ErrTransferBusy = errors.New("transfer busy: another import or export is running")

// DefaultMaxConcurrentTransfers is the default number of transfer slots.
const DefaultMaxConcurrentTransfers = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// TransferLimiter bounds concurrent transfers with a semaphore.
type TransferLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewTransferLimiter creates a limiter with maxConcurrent slots. Requests
// that cannot acquire a slot within maxWait receive ErrTransferBusy.
func NewTransferLimiter(maxConcurrent int, maxWait time.Duration) *TransferLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTransfers
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &TransferLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a transfer slot.
// The caller must call Release once the transfer completes.
func (l *TransferLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// The parent context may have ended first.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTransferBusy
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *TransferLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *TransferLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of running transfers.
func (l *TransferLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the number of slots.
func (l *TransferLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *TransferLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no transfer is running or ctx ends.
func (l *TransferLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of a TransferLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *TransferLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
