// Package tasks schedules deferred fire-and-forget work. Delivery uses it as
// a debounce window: the caller gets control back immediately and the task
// runs after a fixed delay on its own goroutine.
package tasks

import "time"

// TimerFunc schedules f to run after d. The default implementation is
// time.AfterFunc; tests substitute a synchronous one.
type TimerFunc func(d time.Duration, f func())

// Queue submits deferred tasks with a fixed delay.
type Queue struct {
	delay time.Duration
	timer TimerFunc
}

// NewQueue creates a queue with the given debounce delay. A nil timer uses
// the real clock.
func NewQueue(delay time.Duration, timer TimerFunc) *Queue {
	if timer == nil {
		timer = func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		}
	}
	return &Queue{delay: delay, timer: timer}
}

// Submit schedules f to run after the queue's delay. Submit never blocks and
// the scheduled task cannot be cancelled.
func (q *Queue) Submit(f func()) {
	q.timer(q.delay, f)
}

// Delay returns the configured debounce delay.
func (q *Queue) Delay() time.Duration {
	return q.delay
}
