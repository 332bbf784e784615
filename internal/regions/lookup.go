package regions

import (
	"fmt"
	"sort"
	"strings"

	"living-population/internal/models"
)

// AllDistricts is the selection meaning "no district chosen"
const AllDistricts = "전체"

// Lookup maps administrative codes to names. It is built once and never
// modified, so one value can be shared by every request.
type Lookup struct {
	entries    []models.RegionEntry
	districts  []string
	byDistrict map[string][]models.RegionEntry
	byPrefix   map[string]models.RegionEntry
}

// NewLookup validates entries and indexes them by district and prefix.
// The first entry wins when two share a prefix.
func NewLookup(entries []models.RegionEntry) (*Lookup, error) {
	l := &Lookup{
		byDistrict: make(map[string][]models.RegionEntry),
		byPrefix:   make(map[string]models.RegionEntry, len(entries)),
	}

	for i, e := range entries {
		e.AdminCode = strings.TrimSpace(e.AdminCode)
		e.Province = strings.TrimSpace(e.Province)
		e.District = strings.TrimSpace(e.District)
		e.SubDistrict = strings.TrimSpace(e.SubDistrict)
		if len(e.AdminCode) < models.PrefixLength {
			return nil, fmt.Errorf("region entry %d: admin code %q shorter than %d characters", i+1, e.AdminCode, models.PrefixLength)
		}
		if e.District == "" || e.SubDistrict == "" {
			return nil, fmt.Errorf("region entry %d (%s): district and sub-district are required", i+1, e.AdminCode)
		}
		e.Prefix = models.CodePrefix(e.AdminCode)

		if _, dup := l.byPrefix[e.Prefix]; dup {
			continue
		}
		l.byPrefix[e.Prefix] = e
		l.entries = append(l.entries, e)
		l.byDistrict[e.District] = append(l.byDistrict[e.District], e)
	}

	sort.SliceStable(l.entries, func(i, j int) bool {
		return lessEntry(l.entries[i], l.entries[j])
	})
	for d, list := range l.byDistrict {
		sort.SliceStable(list, func(i, j int) bool { return lessEntry(list[i], list[j]) })
		l.districts = append(l.districts, d)
	}
	sort.Strings(l.districts)

	return l, nil
}

func lessEntry(a, b models.RegionEntry) bool {
	if a.District != b.District {
		return a.District < b.District
	}
	if a.SubDistrict != b.SubDistrict {
		return a.SubDistrict < b.SubDistrict
	}
	return a.Prefix < b.Prefix
}

// Len returns the number of distinct prefixes
func (l *Lookup) Len() int {
	return len(l.entries)
}

// Entries returns a copy of every entry, ordered by district and name
func (l *Lookup) Entries() []models.RegionEntry {
	out := make([]models.RegionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Districts returns the sorted district names
func (l *Lookup) Districts() []string {
	out := make([]string, len(l.districts))
	copy(out, l.districts)
	return out
}

func isAll(district string) bool {
	district = strings.TrimSpace(district)
	return district == "" || district == AllDistricts
}

// SubDistricts returns the sorted sub-district names of a district. For
// AllDistricts it returns the distinct names across every district.
func (l *Lookup) SubDistricts(district string) ([]string, error) {
	if isAll(district) {
		seen := make(map[string]struct{})
		var out []string
		for _, e := range l.entries {
			if _, ok := seen[e.SubDistrict]; ok {
				continue
			}
			seen[e.SubDistrict] = struct{}{}
			out = append(out, e.SubDistrict)
		}
		sort.Strings(out)
		return out, nil
	}

	list, ok := l.byDistrict[strings.TrimSpace(district)]
	if !ok {
		return nil, &models.NotFoundError{Resource: "district", ID: district}
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.SubDistrict
	}
	return out, nil
}

// FilterFor translates a selection into a filter. AllDistricts gives the
// empty filter; a district with no sub-districts selected covers all of
// them. Names are matched within the chosen district only.
func (l *Lookup) FilterFor(district string, subDistricts []string) (models.FilterSpec, error) {
	if isAll(district) {
		return models.NewFilterSpec(), nil
	}

	list, ok := l.byDistrict[strings.TrimSpace(district)]
	if !ok {
		return models.FilterSpec{}, &models.NotFoundError{Resource: "district", ID: district}
	}

	var prefixes []string
	if len(subDistricts) == 0 {
		for _, e := range list {
			prefixes = append(prefixes, e.Prefix)
		}
		return models.NewFilterSpec(prefixes...), nil
	}

	for _, name := range subDistricts {
		name = strings.TrimSpace(name)
		found := false
		for _, e := range list {
			if e.SubDistrict == name {
				prefixes = append(prefixes, e.Prefix)
				found = true
			}
		}
		if !found {
			return models.FilterSpec{}, &models.NotFoundError{Resource: "sub-district", ID: district + " " + name}
		}
	}
	return models.NewFilterSpec(prefixes...), nil
}

// Entry returns the entry for a code or prefix
func (l *Lookup) Entry(code string) (models.RegionEntry, bool) {
	e, ok := l.byPrefix[models.CodePrefix(strings.TrimSpace(code))]
	return e, ok
}

// Describe returns one entry per distinct prefix of codes, sorted by
// prefix. Unknown prefixes are returned with empty names.
func (l *Lookup) Describe(codes []string) []models.RegionEntry {
	seen := make(map[string]struct{})
	var out []models.RegionEntry
	for _, c := range codes {
		p := models.CodePrefix(strings.TrimSpace(c))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if e, ok := l.byPrefix[p]; ok {
			out = append(out, e)
		} else {
			out = append(out, models.RegionEntry{Prefix: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}
