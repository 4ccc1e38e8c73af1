// Package civil converts NTP-style seconds since an epoch year into calendar
// fields and back, and holds the fixed table of selectable UTC offsets.
package civil

import (
	"errors"
	"fmt"
	"time"
)

const DefaultEpochYear uint16 = 1900

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

var ErrInvalidDate = errors.New("civil: invalid date")

var daysPerMonth = [12]uint8{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

type DateTime struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

func IsLeapYear(year uint16) bool {
	return year%400 == 0 || (year%100 != 0 && year%4 == 0)
}

// DaysInMonth returns 0 for a month outside 1..12.
func DaysInMonth(year uint16, month uint8) uint8 {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysPerMonth[month-1]
}

func daysInYear(year uint16) uint64 {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// ToCivil splits seconds elapsed since midnight Jan 1 of epochYear into
// calendar fields.
func ToCivil(seconds uint64, epochYear uint16) DateTime {
	days := seconds / secondsPerDay
	remaining := seconds % secondsPerDay

	year := epochYear
	for days >= daysInYear(year) {
		days -= daysInYear(year)
		year++
	}

	month := uint8(1)
	for days >= uint64(DaysInMonth(year, month)) {
		days -= uint64(DaysInMonth(year, month))
		month++
	}

	return DateTime{
		Year:   year,
		Month:  month,
		Day:    uint8(days) + 1,
		Hour:   uint8(remaining / secondsPerHour),
		Minute: uint8(remaining % secondsPerHour / secondsPerMinute),
		Second: uint8(remaining % secondsPerMinute),
	}
}

// ToSeconds is the inverse of ToCivil. Fields are not range checked; see Validate.
func ToSeconds(d DateTime, epochYear uint16) uint64 {
	var days uint64

	for year := epochYear; year < d.Year; year++ {
		days += daysInYear(year)
	}
	for month := uint8(1); month < d.Month; month++ {
		days += uint64(DaysInMonth(d.Year, month))
	}
	days += uint64(d.Day) - 1

	return days*secondsPerDay +
		uint64(d.Hour)*secondsPerHour +
		uint64(d.Minute)*secondsPerMinute +
		uint64(d.Second)
}

func Validate(d DateTime, epochYear uint16) error {
	switch {
	case d.Year < epochYear:
		return fmt.Errorf("%w: year %d before epoch %d", ErrInvalidDate, d.Year, epochYear)
	case d.Month < 1 || d.Month > 12:
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	case d.Day < 1 || d.Day > DaysInMonth(d.Year, d.Month):
		return fmt.Errorf("%w: day %d of %d-%02d", ErrInvalidDate, d.Day, d.Year, d.Month)
	case d.Hour > 23 || d.Minute > 59 || d.Second > 59:
		return fmt.Errorf("%w: time %02d:%02d:%02d", ErrInvalidDate, d.Hour, d.Minute, d.Second)
	}
	return nil
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}

// Time places the calendar fields in loc without any offset arithmetic.
func (d DateTime) Time(loc *time.Location) time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), int(d.Hour), int(d.Minute), int(d.Second), 0, loc)
}
