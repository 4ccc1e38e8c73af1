package system

import (
	"time"

	"golang.org/x/sys/unix"
)

// SetTime steps the system clock.
func SetTime(t time.Time) error {
	timeVal := unix.NsecToTimeval(t.UnixNano())
	return unix.Settimeofday(&timeVal)
}
