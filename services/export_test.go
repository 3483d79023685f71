package services

import "time"

// SetClock replaces the registry's clock.
func (r *SessionRegistry) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}
