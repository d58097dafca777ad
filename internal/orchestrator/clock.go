package orchestrator

import "time"

// Clock is the only source of "now" for deadline comparisons.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// sample reads the clock at the precision Postgres stores timestamps with, so a
// deadline written from one sample compares equal when read back.
func sample(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Microsecond)
}

func elapsed(deadline *time.Time, now time.Time) bool {
	return deadline != nil && !now.Before(*deadline)
}
