package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the output form of DATE; it sorts lexicographically in date order
const DateLayout = "2006-01-02"

// Record is one normalized output row. Values is parallel to the shape's measures.
type Record struct {
	Date   time.Time
	Hour   int
	Code   string
	Values []decimal.Decimal
}

// DateString returns DATE in YYYY-MM-DD form
func (r *Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// Key returns a string identifying the record across every column
func (r *Record) Key() string {
	buf := make([]byte, 0, 64)
	buf = append(buf, r.DateString()...)
	buf = append(buf, 0)
	buf = appendInt(buf, r.Hour)
	buf = append(buf, 0)
	buf = append(buf, r.Code...)
	for _, v := range r.Values {
		buf = append(buf, 0)
		// normalized so 1.0 and 1 compare equal
		buf = append(buf, v.String()...)
	}
	return string(buf)
}

func appendInt(buf []byte, n int) []byte {
	if n < 0 {
		buf = append(buf, '-')
		n = -n
	}
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(buf, tmp[i:]...)
}

// Compare orders records by DATE, TIME, CODE and then by measure values
func (r *Record) Compare(o *Record) int {
	if c := compareStrings(r.DateString(), o.DateString()); c != 0 {
		return c
	}
	if r.Hour != o.Hour {
		if r.Hour < o.Hour {
			return -1
		}
		return 1
	}
	if c := compareStrings(r.Code, o.Code); c != 0 {
		return c
	}
	n := len(r.Values)
	if len(o.Values) < n {
		n = len(o.Values)
	}
	for i := 0; i < n; i++ {
		if c := r.Values[i].Cmp(o.Values[i]); c != 0 {
			return c
		}
	}
	return len(r.Values) - len(o.Values)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Table is a set of records sharing one shape
type Table struct {
	Shape   *ShapeDescriptor
	Records []Record
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}
