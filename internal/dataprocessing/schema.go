package dataprocessing

import (
	"strings"

	"cpsroster/pkg/contracts/domain"
)

// Schema is the canonical column vocabulary plus the header spellings known
// to map onto it. Rename keys are stored cleaned (see CleanLabel).
type Schema struct {
	Version    string
	Vocabulary []string
	Renames    map[string]string
}

// NewSchema builds a schema, cleaning every rename key
func NewSchema(version string, vocabulary []string, renames map[string]string) *Schema {
	s := &Schema{
		Version:    version,
		Vocabulary: append([]string(nil), vocabulary...),
		Renames:    make(map[string]string, len(renames)),
	}
	for from, to := range renames {
		s.Renames[CleanLabel(from)] = to
	}
	return s
}

// DefaultSchema returns the roster schema covering every published layout
func DefaultSchema() *Schema {
	return NewSchema("2019.1",
		[]string{
			domain.ColName, domain.ColJobTitle, domain.ColJobCode,
			domain.ColUnitName, domain.ColUnitNumber, domain.ColPositionNumber,
			domain.ColFTE, domain.ColAnnualSalary, domain.ColFTEAnnualSalary,
			domain.ColAnnualBenefitCost, domain.ColTotalPositionCost,
			domain.ColUnionAffiliation, domain.ColBudgetCategory,
			domain.ColClsIndc, domain.ColDate,
		},
		map[string]string{
			"employee name":         domain.ColName,
			"jobcode":               domain.ColJobCode,
			"job description":       domain.ColJobTitle,
			"department":            domain.ColUnitName,
			"pos #":                 domain.ColPositionNumber,
			"dept id":               domain.ColUnitNumber,
			"dept/unit name":        domain.ColUnitName,
			"gross salary":          domain.ColAnnualSalary,
			"fte salary":            domain.ColFTEAnnualSalary,
			"dept/unit number":      domain.ColUnitNumber,
			"annual  benefit  cost": domain.ColAnnualBenefitCost,
		},
	)
}

// CleanLabel lower-cases a header, turns newlines, carriage returns and
// underscores into spaces, collapses whitespace runs and trims.
func CleanLabel(label string) string {
	label = strings.ToLower(label)
	label = strings.NewReplacer("\n", " ", "\r", " ", "_", " ").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}

// Canonicalize maps a raw header onto the vocabulary. Unknown headers come
// back cleaned but otherwise unchanged.
func (s *Schema) Canonicalize(label string) string {
	cleaned := CleanLabel(label)
	if to, ok := s.Renames[cleaned]; ok {
		return to
	}
	return cleaned
}

// Canonical reports whether label is part of the vocabulary
func (s *Schema) Canonical(label string) bool {
	for _, v := range s.Vocabulary {
		if v == label {
			return true
		}
	}
	return false
}
