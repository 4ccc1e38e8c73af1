//go:build !linux

package system

import (
	"errors"
	"time"
)

var ErrRTCUnsupported = errors.New("rtc is not supported on this platform")

func SetRTC(time.Time) error {
	return ErrRTCUnsupported
}
