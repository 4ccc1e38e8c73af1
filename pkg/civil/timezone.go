package civil

type TimeZone struct {
	Name   string
	Offset int32 // seconds east of UTC
}

const ZoneCount = 50

func hm(hours, minutes int32) int32 {
	if hours < 0 {
		return hours*secondsPerHour - minutes*secondsPerMinute
	}
	return hours*secondsPerHour + minutes*secondsPerMinute
}

var zones = [ZoneCount]TimeZone{
	{"UTC-12:00 Baker Island", hm(-12, 0)},
	{"UTC-11:00 American Samoa", hm(-11, 0)},
	{"UTC-10:00 Hawaii", hm(-10, 0)},
	{"UTC-09:30 Marquesas Islands", hm(-9, 30)},
	{"UTC-09:00 Alaska", hm(-9, 0)},
	{"UTC-08:00 Pacific Time", hm(-8, 0)},
	{"UTC-08:00 Baja California", hm(-8, 0)},
	{"UTC-07:00 Mountain Time", hm(-7, 0)},
	{"UTC-07:00 Arizona", hm(-7, 0)},
	{"UTC-06:00 Central Time", hm(-6, 0)},
	{"UTC-06:00 Mexico City", hm(-6, 0)},
	{"UTC-05:00 Eastern Time", hm(-5, 0)},
	{"UTC-05:00 Bogota, Lima", hm(-5, 0)},
	{"UTC-04:00 Atlantic Time", hm(-4, 0)},
	{"UTC-04:00 Caracas, La Paz", hm(-4, 0)},
	{"UTC-03:30 Newfoundland", hm(-3, 30)},
	{"UTC-03:00 Brasilia", hm(-3, 0)},
	{"UTC-03:00 Buenos Aires", hm(-3, 0)},
	{"UTC-02:00 South Georgia", hm(-2, 0)},
	{"UTC-01:00 Azores", hm(-1, 0)},
	{"UTC-01:00 Cape Verde", hm(-1, 0)},
	{"UTC+00:00 Coordinated Universal Time", 0},
	{"UTC+00:00 London, Dublin, Lisbon", 0},
	{"UTC+01:00 Central European Time", hm(1, 0)},
	{"UTC+01:00 West Central Africa", hm(1, 0)},
	{"UTC+02:00 Eastern European Time", hm(2, 0)},
	{"UTC+02:00 Cairo", hm(2, 0)},
	{"UTC+02:00 Johannesburg", hm(2, 0)},
	{"UTC+03:00 Moscow", hm(3, 0)},
	{"UTC+03:00 Riyadh, Nairobi", hm(3, 0)},
	{"UTC+03:30 Tehran", hm(3, 30)},
	{"UTC+04:00 Dubai, Baku", hm(4, 0)},
	{"UTC+04:30 Kabul", hm(4, 30)},
	{"UTC+05:00 Karachi, Tashkent", hm(5, 0)},
	{"UTC+05:30 India", hm(5, 30)},
	{"UTC+05:45 Kathmandu", hm(5, 45)},
	{"UTC+06:00 Dhaka", hm(6, 0)},
	{"UTC+06:30 Yangon", hm(6, 30)},
	{"UTC+07:00 Bangkok, Jakarta", hm(7, 0)},
	{"UTC+08:00 Beijing, Singapore, Perth", hm(8, 0)},
	{"UTC+08:45 Eucla", hm(8, 45)},
	{"UTC+09:00 Tokyo, Seoul", hm(9, 0)},
	{"UTC+09:30 Adelaide, Darwin", hm(9, 30)},
	{"UTC+10:00 Sydney, Guam", hm(10, 0)},
	{"UTC+10:30 Lord Howe Island", hm(10, 30)},
	{"UTC+11:00 Solomon Islands", hm(11, 0)},
	{"UTC+12:00 Auckland, Fiji", hm(12, 0)},
	{"UTC+12:45 Chatham Islands", hm(12, 45)},
	{"UTC+13:00 Tonga, Samoa", hm(13, 0)},
	{"UTC+14:00 Line Islands", hm(14, 0)},
}

// Offset returns the UTC offset in seconds for a zone index, or 0 when the
// index is outside the table.
func Offset(index int) int32 {
	zone, _ := Zone(index)
	return zone.Offset
}

func Zone(index int) (TimeZone, bool) {
	if index < 0 || index >= ZoneCount {
		return TimeZone{}, false
	}
	return zones[index], true
}

func Zones() []TimeZone {
	return append([]TimeZone(nil), zones[:]...)
}

// Shift applies a zone offset to seconds since the epoch. ok is false when a
// negative offset would move the value before the epoch origin.
func Shift(seconds uint64, offset int32) (shifted uint64, ok bool) {
	if offset >= 0 {
		return seconds + uint64(offset), true
	}

	delta := uint64(-int64(offset))
	if delta > seconds {
		return 0, false
	}
	return seconds - delta, true
}
