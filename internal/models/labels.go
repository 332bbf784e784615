package models

import (
	"strings"
	"time"
)

// Labels holds the derived column names and values for weekday and day type
type Labels struct {
	Name          string
	WeekdayHeader string
	DayTypeHeader string
	Weekdays      [7]string // Monday first
	Weekday       string
	Weekend       string
}

var EnglishLabels = Labels{
	Name:          "english",
	WeekdayHeader: "WEEKDAY",
	DayTypeHeader: "DAY_TYPE",
	Weekdays:      [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	Weekday:       "weekday",
	Weekend:       "weekend",
}

var KoreanLabels = Labels{
	Name:          "korean",
	WeekdayHeader: "요일",
	DayTypeHeader: "주중_or_주말",
	Weekdays:      [7]string{"월요일", "화요일", "수요일", "목요일", "금요일", "토요일", "일요일"},
	Weekday:       "주중",
	Weekend:       "주말",
}

// LabelsByName returns KoreanLabels for "korean" and EnglishLabels otherwise
func LabelsByName(name string) Labels {
	if strings.EqualFold(strings.TrimSpace(name), KoreanLabels.Name) {
		return KoreanLabels
	}
	return EnglishLabels
}

// DayIndex returns the day of week with Monday as 0 and Sunday as 6
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend reports whether t falls on Saturday or Sunday
func IsWeekend(t time.Time) bool {
	return DayIndex(t) >= 5
}

// WeekdayName returns the label of t's day of week
func (l Labels) WeekdayName(t time.Time) string {
	return l.Weekdays[DayIndex(t)]
}

// DayType returns the weekend or weekday label for t
func (l Labels) DayType(t time.Time) string {
	if IsWeekend(t) {
		return l.Weekend
	}
	return l.Weekday
}
