package models

import (
	"sort"
	"strings"
)

// PrefixLength is the number of leading code characters identifying a sub-district
const PrefixLength = 7

// FilterSpec is an immutable set of 7 character code prefixes.
// The zero value and an empty set both pass every code.
type FilterSpec struct {
	prefixes map[string]struct{}
}

// NewFilterSpec builds a filter from codes or prefixes. Each value is trimmed
// and cut to PrefixLength characters; blanks are ignored.
func NewFilterSpec(codes ...string) FilterSpec {
	prefixes := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		prefixes[CodePrefix(c)] = struct{}{}
	}
	return FilterSpec{prefixes: prefixes}
}

// ParseFilterSpec splits a comma or whitespace separated list of codes
func ParseFilterSpec(s string) FilterSpec {
	return NewFilterSpec(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == ';'
	})...)
}

// CodePrefix returns the first PrefixLength characters of code
func CodePrefix(code string) string {
	if len(code) <= PrefixLength {
		return code
	}
	return code[:PrefixLength]
}

// IsEmpty reports whether the filter passes everything
func (f FilterSpec) IsEmpty() bool {
	return len(f.prefixes) == 0
}

// Len returns the number of distinct prefixes
func (f FilterSpec) Len() int {
	return len(f.prefixes)
}

// Matches compares the code's prefix as a string, keeping leading zeros significant
func (f FilterSpec) Matches(code string) bool {
	if len(f.prefixes) == 0 {
		return true
	}
	if len(code) < PrefixLength {
		return false
	}
	_, ok := f.prefixes[code[:PrefixLength]]
	return ok
}

// Prefixes returns the prefixes in sorted order
func (f FilterSpec) Prefixes() []string {
	out := make([]string, 0, len(f.prefixes))
	for p := range f.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Union returns a filter holding the prefixes of both
func (f FilterSpec) Union(o FilterSpec) FilterSpec {
	return NewFilterSpec(append(f.Prefixes(), o.Prefixes()...)...)
}

func (f FilterSpec) String() string {
	if f.IsEmpty() {
		return "*"
	}
	return strings.Join(f.Prefixes(), ",")
}
