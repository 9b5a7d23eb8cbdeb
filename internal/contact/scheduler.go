package contact

import "time"

// Scheduler runs f once after d. The returned function cancels it; calling
// cancel after f has run is harmless.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, f func()) func()

func (s SchedulerFunc) AfterFunc(d time.Duration, f func()) func() { return s(d, f) }

// RealTime schedules on the runtime timer heap.
var RealTime Scheduler = SchedulerFunc(func(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
})
