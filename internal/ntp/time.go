package ntp

import (
	"math"
	"time"

	"golang.org/x/sys/unix"
)

const (
	EraLength     int64 = 4_294_967_296 // 2^32
	UnixEraOffset int64 = 2_208_988_800 // 1970 - 1900 in seconds
)

func UnixToNTPTimestampEncoded(time unix.Timespec) TimestampEncoded {
	return TimestampEncoded((time.Sec+UnixEraOffset)<<32) +
		TimestampEncoded(float64(time.Nsec)/1e9*float64(EraLength))
}

func TimeToNTPTimestampEncoded(t time.Time) TimestampEncoded {
	return UnixToNTPTimestampEncoded(unix.NsecToTimespec(t.UnixNano()))
}

func NTPTimestampToTime(ntpTimestamp TimestampEncoded) time.Time {
	Sec := int64(ntpTimestamp >> 32)
	Usec := int32(math.Round(float64(int64(ntpTimestamp)-(Sec<<
		32)) / float64(EraLength) * 1e6))
	Sec -= UnixEraOffset
	return time.Unix(Sec, int64(Usec)*1e3)
}

// SecondsToTime interprets era 0 integer seconds.
func SecondsToTime(seconds uint64) time.Time {
	return time.Unix(int64(seconds)-UnixEraOffset, 0).UTC()
}

func TimeToSeconds(t time.Time) uint64 {
	return uint64(t.Unix() + UnixEraOffset)
}

func GetSystemTime() TimestampEncoded {
	var unixTime unix.Timespec
	unix.ClockGettime(unix.CLOCK_REALTIME, &unixTime)
	return UnixToNTPTimestampEncoded(unixTime)
}
