package system

import (
	"time"

	"golang.org/x/sys/unix"
)

// SetTime steps the system clock.
func SetTime(t time.Time) error {
	timeVal := unix.Timeval{
		Sec:  t.Unix(),
		Usec: int32(t.Nanosecond() / 1e3),
	}
	return unix.Settimeofday(&timeVal)
}
