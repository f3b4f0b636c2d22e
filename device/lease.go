package device

import (
	"errors"
	"sync"
)

// ErrDeviceBusy is returned by Lease.Acquire when another owner already
// holds the input device.
var ErrDeviceBusy = errors.New("fieldrec: input device already acquired")

// Lease enforces the single-owner exclusivity the input device requires
// (§9: "exclusivity is enforced with a single owner token guarded by a
// mutex, rather than relying purely on call-ordering discipline"). The
// capture engine and the standalone monitor loop both acquire the same
// Lease before touching the input device, so the hand-off protocol in
// §4.7 has a real enforcement point instead of being honor-system only.
type Lease struct {
	mu    sync.Mutex
	owner string
}

// Acquire claims the lease for owner, failing with ErrDeviceBusy if a
// different owner already holds it. Acquiring with the same owner name
// that already holds it is a no-op success (idempotent re-entry, e.g.
// resume() re-acquiring after its own pause()).
func (l *Lease) Acquire(owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != "" && l.owner != owner {
		return ErrDeviceBusy
	}
	l.owner = owner
	return nil
}

// Release gives up the lease if owner currently holds it. Releasing a
// lease you don't hold is a no-op.
func (l *Lease) Release(owner string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == owner {
		l.owner = ""
	}
}

// Owner reports the current holder, or "" if free.
func (l *Lease) Owner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}
