package pipeline

import (
	"strings"

	"living-population/internal/models"
)

var headerReplacer = strings.NewReplacer(`"`, "", "?", "")

// CleanHeader strips a byte order mark and surrounding whitespace, then
// removes double quotes and question marks left behind by mangled encodings.
func CleanHeader(name string) string {
	name = strings.TrimPrefix(name, "\uFEFF")
	return headerReplacer.Replace(strings.TrimSpace(name))
}

// CleanHeaders applies CleanHeader to every column name
func CleanHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = CleanHeader(h)
	}
	return out
}

// columnIndex locates a shape's source columns in a file's header
type columnIndex struct {
	date     int
	time     int
	code     int
	measures [][]int
}

// positions maps each cleaned header name to its first occurrence
func positions(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}
	return pos
}

// ValidateHeader checks that every required column of shape is present in
// the cleaned header. Missing columns are reported in required order.
func ValidateHeader(filename string, header []string, shape *models.ShapeDescriptor) (*columnIndex, error) {
	pos := positions(header)

	var missing []string
	for _, col := range shape.Required() {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Filename: filename, Shape: shape.Name, Missing: missing}
	}

	idx := &columnIndex{
		date:     pos[shape.DateColumn],
		time:     pos[shape.TimeColumn],
		code:     pos[shape.CodeColumn],
		measures: make([][]int, len(shape.Measures)),
	}
	for i, m := range shape.Measures {
		cols := make([]int, len(m.Sources))
		for j, src := range m.Sources {
			cols[j] = pos[src]
		}
		idx.measures[i] = cols
	}
	return idx, nil
}

// DetectShape returns the first shape whose required columns are all present
func DetectShape(header []string, shapes []*models.ShapeDescriptor) *models.ShapeDescriptor {
	pos := positions(header)
	for _, s := range shapes {
		complete := true
		for _, col := range s.Required() {
			if _, ok := pos[col]; !ok {
				complete = false
				break
			}
		}
		if complete {
			return s
		}
	}
	return nil
}
