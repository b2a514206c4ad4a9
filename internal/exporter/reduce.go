package exporter

import (
	"math"
	"strings"

	"cpsroster/pkg/contracts/domain"
)

// ReducedDropColumns carry little signal for distribution
var ReducedDropColumns = []string{domain.ColUnionAffiliation, domain.ColJobCode, domain.ColFTE}

// ReduceOptions configures the size-reduced export
type ReduceOptions struct {
	// JobTitlePrefix is removed from the start of every job title
	JobTitlePrefix string
	// UnitNameSuffix is removed when it is the last word of a unit name
	UnitNameSuffix string
}

// Reduce returns a smaller copy of ds for distribution. ds is not modified.
// Annual salaries are truncated to whole dollars; missing salaries stay missing.
func Reduce(ds *domain.Dataset, opts ReduceOptions) *domain.Dataset {
	drop := make(map[string]bool, len(ReducedDropColumns))
	for _, c := range ReducedDropColumns {
		drop[c] = true
	}

	out := &domain.Dataset{Records: make([]domain.Record, len(ds.Records))}
	for _, c := range ds.Columns {
		if !drop[c] {
			out.Columns = append(out.Columns, c)
		}
	}

	for i, rec := range ds.Records {
		r := domain.Record{
			Date:           rec.Date,
			PositionNumber: rec.PositionNumber,
			UnitNumber:     rec.UnitNumber,
			Numbers:        make(map[string]float64, len(rec.Numbers)),
			Text:           make(map[string]string, len(rec.Text)),
		}
		for k, v := range rec.Numbers {
			if !drop[k] {
				r.Numbers[k] = v
			}
		}
		for k, v := range rec.Text {
			if !drop[k] {
				r.Text[k] = v
			}
		}

		if v, ok := r.Numbers[domain.ColAnnualSalary]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			r.Numbers[domain.ColAnnualSalary] = math.Trunc(v)
		}
		if v, ok := r.Text[domain.ColJobTitle]; ok && opts.JobTitlePrefix != "" {
			r.Text[domain.ColJobTitle] = strings.TrimSpace(strings.TrimPrefix(v, opts.JobTitlePrefix))
		}
		if v, ok := r.Text[domain.ColUnitName]; ok && opts.UnitNameSuffix != "" {
			r.Text[domain.ColUnitName] = trimSuffixWord(v, opts.UnitNameSuffix)
		}
		out.Records[i] = r
	}
	return out
}

func trimSuffixWord(s, word string) string {
	trimmed := strings.TrimRight(s, " ")
	if trimmed == word {
		return ""
	}
	if strings.HasSuffix(trimmed, " "+word) {
		return strings.TrimRight(strings.TrimSuffix(trimmed, word), " ")
	}
	return s
}
