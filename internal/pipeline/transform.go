package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"living-population/internal/models"
)

// RowStats counts what happened to the data rows of one file
type RowStats struct {
	Read     int `json:"read"`
	Dropped  int `json:"dropped"`
	Filtered int `json:"filtered"`
	Emitted  int `json:"emitted"`
}

func (s *RowStats) add(o RowStats) {
	s.Read += o.Read
	s.Dropped += o.Dropped
	s.Filtered += o.Filtered
	s.Emitted += o.Emitted
}

type rowOutcome int

const (
	rowEmitted rowOutcome = iota
	rowDropped
	rowFiltered
)

// transformer turns raw fields into records for one shape and filter
type transformer struct {
	shape  *models.ShapeDescriptor
	filter models.FilterSpec
	index  *columnIndex
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// window transforms a batch of rows, appending kept records to out
func (t *transformer) window(rows [][]string, out []models.Record) ([]models.Record, RowStats) {
	var stats RowStats
	for _, fields := range rows {
		stats.Read++
		rec, outcome := t.row(fields)
		switch outcome {
		case rowEmitted:
			out = append(out, rec)
			stats.Emitted++
		case rowFiltered:
			stats.Filtered++
		default:
			stats.Dropped++
		}
	}
	return out, stats
}

func (t *transformer) row(fields []string) (models.Record, rowOutcome) {
	code := field(fields, t.index.code)
	if !t.filter.IsEmpty() && !t.filter.Matches(code) {
		return models.Record{}, rowFiltered
	}
	if code == "" {
		return models.Record{}, rowDropped
	}

	date, ok := ParseDate(field(fields, t.index.date))
	if !ok {
		return models.Record{}, rowDropped
	}
	hour, ok := ParseHour(field(fields, t.index.time))
	if !ok {
		return models.Record{}, rowDropped
	}

	values := make([]decimal.Decimal, len(t.index.measures))
	for i, cols := range t.index.measures {
		sum := decimal.Zero
		for _, c := range cols {
			v, ok := ParseMeasure(field(fields, c))
			if !ok {
				if t.shape.Policy == models.NullOnFailure {
					return models.Record{}, rowDropped
				}
				continue
			}
			sum = sum.Add(v)
		}
		values[i] = sum
	}

	return models.Record{
		Date:   date,
		Hour:   hour,
		Code:   strings.Clone(code),
		Values: values,
	}, rowEmitted
}

// ParseDate accepts exactly eight digits in YYYYMMDD form
func ParseDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, false
		}
	}
	d, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseHour accepts any numeric form of a whole number, such as "14" or "14.0".
// TIME is an integer hour band (0-23) in the source data and in the workbook,
// so a fractional value such as "14.5" names no band and is rejected like a
// non-numeric one.
func ParseHour(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > 1e6 {
		return 0, false
	}
	return int(f), true
}

// ParseMeasure parses a count exactly
func ParseMeasure(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
