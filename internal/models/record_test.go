package models

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func rec(date string, hour int, code string, values ...string) Record {
	d, _ := time.Parse("20060102", date)
	r := Record{Date: d, Hour: hour, Code: code}
	for _, v := range values {
		r.Values = append(r.Values, decimal.RequireFromString(v))
	}
	return r
}

func TestRecord_KeyNormalizesValues(t *testing.T) {
	a := rec("20240301", 14, "1104065001", "1.0", "2")
	b := rec("20240301", 14, "1104065001", "1", "2.00")
	if a.Key() != b.Key() {
		t.Errorf("Key() differs for equal values: %q vs %q", a.Key(), b.Key())
	}

	c := rec("20240301", 14, "1104065001", "1", "3")
	if a.Key() == c.Key() {
		t.Error("Key() should differ when a measure differs")
	}
}

func TestRecord_Compare(t *testing.T) {
	rows := []Record{
		rec("20240302", 0, "1101053001", "1"),
		rec("20240301", 14, "1104065001", "9"),
		rec("20240301", 2, "1104065001", "1"),
		rec("20240301", 14, "1101053001", "5"),
		rec("20240301", 14, "1104065001", "3"),
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Compare(&rows[j]) < 0 })

	want := []string{
		"2024-03-01|2|1104065001|1",
		"2024-03-01|14|1101053001|5",
		"2024-03-01|14|1104065001|3",
		"2024-03-01|14|1104065001|9",
		"2024-03-02|0|1101053001|1",
	}
	for i, r := range rows {
		got := strings.Join([]string{r.DateString(), itoa(r.Hour), r.Code, r.Values[0].String()}, "|")
		if got != want[i] {
			t.Errorf("row %d = %s, want %s", i, got, want[i])
		}
	}
}

func itoa(n int) string {
	return string(appendInt(nil, n))
}

func TestAppendInt(t *testing.T) {
	for _, n := range []int{0, 7, 23, -4, 1234567} {
		want := decimal.NewFromInt(int64(n)).String()
		if got := itoa(n); got != want {
			t.Errorf("appendInt(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestAggregateFailure_SortedReasons(t *testing.T) {
	agg := NewAggregateFailure([]FileError{
		{Filename: "b.csv", Err: &SchemaError{Filename: "b.csv", Shape: "foreign", Missing: []string{"중국인체류인구수"}}},
		{Filename: "a.csv", Err: &EncodingError{Filename: "a.csv", Tried: []string{"utf-8", "cp949"}}},
	})

	reasons := agg.Reasons()
	if len(reasons) != 2 {
		t.Fatalf("reasons = %d, want 2", len(reasons))
	}
	if !strings.HasPrefix(reasons[0], "a.csv:") {
		t.Errorf("first reason = %q, want a.csv first", reasons[0])
	}
	if !strings.Contains(agg.Error(), "중국인체류인구수") {
		t.Errorf("Error() = %q, want missing column named", agg.Error())
	}

	var schemaErr *SchemaError
	fe := agg.Failures[1]
	if !errors.As(&fe, &schemaErr) {
		t.Error("FileError should unwrap to SchemaError")
	}
}

func TestLabels(t *testing.T) {
	// 2024-03-01 was a Friday, 2024-03-03 a Sunday
	fri := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	if got := EnglishLabels.WeekdayName(fri); got != "Friday" {
		t.Errorf("WeekdayName(fri) = %q, want Friday", got)
	}
	if got := EnglishLabels.DayType(fri); got != "weekday" {
		t.Errorf("DayType(fri) = %q, want weekday", got)
	}
	if got := KoreanLabels.WeekdayName(sun); got != "일요일" {
		t.Errorf("WeekdayName(sun) = %q, want 일요일", got)
	}
	if got := KoreanLabels.DayType(sun); got != "주말" {
		t.Errorf("DayType(sun) = %q, want 주말", got)
	}
	if DayIndex(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) != 0 {
		t.Error("Monday should have index 0")
	}
	if LabelsByName("KOREAN").Name != "korean" || LabelsByName("").Name != "english" {
		t.Error("LabelsByName fallback mismatch")
	}
}
