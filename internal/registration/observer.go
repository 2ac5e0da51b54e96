package registration

import "time"

// Observer receives engine measurements. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRegistration(outcome string, status string, duration time.Duration)
	ObserveDrop(outcome string, promoted bool, duration time.Duration)
	ObserveLockWait(outcome string, duration time.Duration)
	LockWaiters(delta int)
}

type nopObserver struct{}

func (nopObserver) ObserveRegistration(string, string, time.Duration) {}
func (nopObserver) ObserveDrop(string, bool, time.Duration)           {}
func (nopObserver) ObserveLockWait(string, time.Duration)             {}
func (nopObserver) LockWaiters(int)                                   {}
