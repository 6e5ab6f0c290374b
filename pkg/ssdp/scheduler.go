package ssdp

import "time"

type timer interface {
	Stop() bool
}

// scheduler runs callbacks after a delay. It exists so that tests can drive
// timers by hand.
type scheduler interface {
	AfterFunc(d time.Duration, f func()) timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}
