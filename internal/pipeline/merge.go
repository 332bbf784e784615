package pipeline

import (
	"sort"

	"living-population/internal/models"
)

// MergeTables concatenates tables of one shape, removes rows equal across
// every column and sorts by DATE, TIME, CODE with the measures breaking
// ties. The result is the same for any order of tables or rows.
func MergeTables(tables []*models.Table) (*models.Table, error) {
	var shape *models.ShapeDescriptor
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		if shape == nil {
			shape = t.Shape
		} else if t.Shape.Name != shape.Name {
			return nil, &models.ShapeMismatchError{Expected: shape.Name, Got: t.Shape.Name}
		}
		total += len(t.Records)
	}
	if shape == nil {
		return nil, models.ErrEmptyResult
	}

	seen := make(map[string]struct{}, total)
	merged := make([]models.Record, 0, total)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.Records {
			key := r.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Compare(&merged[j]) < 0
	})

	return &models.Table{Shape: shape, Records: merged}, nil
}
