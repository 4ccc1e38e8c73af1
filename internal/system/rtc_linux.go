package system

import (
	"sync"
	"time"

	"github.com/u-root/u-root/pkg/rtc"
)

// Global instance of RTC clock because `rtc` doesn't support closing.
var (
	rtcClock           *rtc.RTC
	rtcClockErr        error
	rtcClockInitialize sync.Once
)

// SetRTC writes t to the hardware clock.
func SetRTC(t time.Time) error {
	rtcClockInitialize.Do(func() {
		rtcClock, rtcClockErr = rtc.OpenRTC()
	})

	if rtcClockErr != nil {
		return rtcClockErr
	}

	return rtcClock.Set(t)
}
