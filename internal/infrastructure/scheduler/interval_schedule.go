package scheduler

import (
	"fmt"
	"math/rand"
	"time"
)

// IntervalSchedule runs a job at a fixed interval, with optional jitter so
// several instances do not hit the Intra API at the same moment.
type IntervalSchedule struct {
	Interval time.Duration
	Jitter   time.Duration
}

// Every creates an IntervalSchedule without jitter.
func Every(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// EveryWithJitter creates an IntervalSchedule that shifts each run by a
// random amount in [0, jitter).
func EveryWithJitter(interval, jitter time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval, Jitter: jitter}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.Interval)
	if s.Jitter > 0 {
		next = next.Add(time.Duration(rand.Int63n(int64(s.Jitter))))
	}
	return next
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	if s.Jitter > 0 {
		return fmt.Sprintf("@every %s (jitter up to %s)", s.Interval, s.Jitter)
	}
	return fmt.Sprintf("@every %s", s.Interval)
}
