package services

import (
	"github.com/shopspring/decimal"

	"living-population/internal/models"
	"living-population/internal/regions"
)

// MeasureTotal is the column sum of one measure
type MeasureTotal struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

// Summary describes a merged table for reports
type Summary struct {
	Shape         string               `json:"shape"`
	Rows          int                  `json:"rows"`
	FirstDate     string               `json:"first_date,omitempty"`
	LastDate      string               `json:"last_date,omitempty"`
	Hours         int                  `json:"distinct_hours"`
	DistinctCodes int                  `json:"distinct_codes"`
	Regions       []models.RegionEntry `json:"regions"`
	Totals        []MeasureTotal       `json:"totals"`
}

// SummaryService computes report figures from merged tables
type SummaryService struct {
	lookup *regions.Lookup
}

// NewSummaryService creates a summary service. lookup may be nil, in which
// case regions are reported by prefix only.
func NewSummaryService(lookup *regions.Lookup) *SummaryService {
	return &SummaryService{lookup: lookup}
}

// Summarize computes row count, date range, distinct codes, the regions
// behind those codes and per-measure totals.
func (s *SummaryService) Summarize(table *models.Table) *Summary {
	summary := &Summary{Regions: []models.RegionEntry{}, Totals: []MeasureTotal{}}
	if table == nil || table.Shape == nil {
		return summary
	}
	summary.Shape = table.Shape.Name
	summary.Rows = table.Len()

	totals := make([]decimal.Decimal, len(table.Shape.Measures))
	codes := make(map[string]struct{})
	hours := make(map[int]struct{})

	for i := range table.Records {
		r := &table.Records[i]
		date := r.DateString()
		if summary.FirstDate == "" || date < summary.FirstDate {
			summary.FirstDate = date
		}
		if date > summary.LastDate {
			summary.LastDate = date
		}
		codes[r.Code] = struct{}{}
		hours[r.Hour] = struct{}{}
		for j := range totals {
			if j < len(r.Values) {
				totals[j] = totals[j].Add(r.Values[j])
			}
		}
	}

	summary.DistinctCodes = len(codes)
	summary.Hours = len(hours)

	codeList := make([]string, 0, len(codes))
	for c := range codes {
		codeList = append(codeList, c)
	}
	if s.lookup != nil {
		summary.Regions = append(summary.Regions, s.lookup.Describe(codeList)...)
	} else {
		for _, p := range models.NewFilterSpec(codeList...).Prefixes() {
			summary.Regions = append(summary.Regions, models.RegionEntry{Prefix: p})
		}
	}

	for j, m := range table.Shape.Measures {
		summary.Totals = append(summary.Totals, MeasureTotal{Name: m.Name, Total: totals[j].String()})
	}
	return summary
}
