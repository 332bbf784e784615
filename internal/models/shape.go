package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ShapeKind identifies which dataset family a file belongs to
type ShapeKind int

const (
	ShapeUnknown ShapeKind = iota
	ShapeForeign
	ShapeDomestic
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeForeign:
		return "foreign"
	case ShapeDomestic:
		return "domestic"
	default:
		return "other"
	}
}

// ParseShapeKind accepts the names produced by ShapeKind.String
func ParseShapeKind(s string) (ShapeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "foreign":
		return ShapeForeign, nil
	case "domestic":
		return ShapeDomestic, nil
	default:
		return ShapeUnknown, &ValidationError{
			Field:   "shape",
			Value:   s,
			Message: fmt.Sprintf("unknown shape %q, expected foreign or domestic", s),
		}
	}
}

// CoercionPolicy decides what happens to a measure source that is not numeric
type CoercionPolicy int

const (
	// NullOnFailure drops the whole row
	NullOnFailure CoercionPolicy = iota
	// ZeroOnFailure substitutes zero and keeps the row
	ZeroOnFailure
)

// MeasureRecipe produces one output column as the sum of its source columns
type MeasureRecipe struct {
	Name    string
	Sources []string
}

// ShapeDescriptor describes the required input columns of a dataset family
// and how they are projected into output columns.
type ShapeDescriptor struct {
	Name          string
	Kind          ShapeKind
	DateColumn    string
	TimeColumn    string
	CodeColumn    string
	Measures      []MeasureRecipe
	Policy        CoercionPolicy
	FilenameHints []string
}

// Required returns every column a file must carry, in a stable order
// with duplicates removed.
func (s *ShapeDescriptor) Required() []string {
	seen := make(map[string]struct{})
	var cols []string
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}

	add(s.DateColumn)
	add(s.TimeColumn)
	add(s.CodeColumn)
	for _, m := range s.Measures {
		for _, src := range m.Sources {
			add(src)
		}
	}
	return cols
}

// MeasureNames returns the output names of the measure columns
func (s *ShapeDescriptor) MeasureNames() []string {
	names := make([]string, len(s.Measures))
	for i, m := range s.Measures {
		names[i] = m.Name
	}
	return names
}

// Header returns the output column order
func (s *ShapeDescriptor) Header(labels Labels) []string {
	header := []string{"DATE", labels.WeekdayHeader, labels.DayTypeHeader, "TIME", "CODE"}
	return append(header, s.MeasureNames()...)
}

// MatchesFilename reports whether any filename hint occurs in the base
// name of name. Directories are ignored.
func (s *ShapeDescriptor) MatchesFilename(name string) bool {
	upper := strings.ToUpper(filepath.Base(name))
	for _, hint := range s.FilenameHints {
		if strings.Contains(upper, hint) {
			return true
		}
	}
	return false
}

// ForeignShape is the foreign resident living population export
var ForeignShape = &ShapeDescriptor{
	Name:       "foreign",
	Kind:       ShapeForeign,
	DateColumn: "기준일ID",
	TimeColumn: "시간대구분",
	CodeColumn: "집계구코드",
	Measures: []MeasureRecipe{
		{Name: "ALL", Sources: []string{"총생활인구수"}},
		{Name: "CHN", Sources: []string{"중국인체류인구수"}},
		{Name: "EXP_CHN", Sources: []string{"중국외외국인체류인구수"}},
	},
	Policy:        NullOnFailure,
	FilenameHints: []string{"TEMP_FOREIGNER", "FOREIGNER"},
}

// DomesticShape is the domestic resident export, re-bucketed into ten year bands
var DomesticShape = newDomesticShape()

// domesticBands lists the raw five year columns feeding each reporting band
var domesticBands = []struct {
	suffix string
	raw    []string
}{
	{"0_9", []string{"0세부터9세"}},
	{"10_19", []string{"10세부터14세", "15세부터19세"}},
	{"20_29", []string{"20세부터24세", "25세부터29세"}},
	{"30_39", []string{"30세부터34세", "35세부터39세"}},
	{"40_49", []string{"40세부터44세", "45세부터49세"}},
	{"50_59", []string{"50세부터54세", "55세부터59세"}},
	{"60_69", []string{"60세부터64세", "65세부터69세"}},
	{"70_PLUS", []string{"70세이상"}},
}

func newDomesticShape() *ShapeDescriptor {
	sexes := []struct{ name, prefix string }{
		{"MALE", "남자"},
		{"FEMALE", "여자"},
	}

	var totals, bands []MeasureRecipe
	for _, sex := range sexes {
		var all []string
		for _, band := range domesticBands {
			recipe := MeasureRecipe{Name: sex.name + "_" + band.suffix}
			for _, r := range band.raw {
				col := sex.prefix + r + "생활인구수"
				recipe.Sources = append(recipe.Sources, col)
				all = append(all, col)
			}
			bands = append(bands, recipe)
		}
		totals = append(totals, MeasureRecipe{Name: sex.name + "_TOTAL", Sources: all})
	}

	return &ShapeDescriptor{
		Name:          "domestic",
		Kind:          ShapeDomestic,
		DateColumn:    "기준일ID",
		TimeColumn:    "시간대구분",
		CodeColumn:    "집계구코드",
		Measures:      append(totals, bands...),
		Policy:        ZeroOnFailure,
		FilenameHints: []string{"LOCAL_PEOPLE"},
	}
}

// Shapes lists the known shapes in detection order
var Shapes = []*ShapeDescriptor{ForeignShape, DomesticShape}

// ShapeByKind returns the descriptor for kind, or nil for ShapeUnknown
func ShapeByKind(kind ShapeKind) *ShapeDescriptor {
	for _, s := range Shapes {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

// ClassifyFilename maps a file name to a shape using its hints.
// Files matching no hint belong to the "other" bucket.
func ClassifyFilename(name string) ShapeKind {
	for _, s := range Shapes {
		if s.MatchesFilename(name) {
			return s.Kind
		}
	}
	return ShapeUnknown
}
