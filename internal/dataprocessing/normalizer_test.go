package dataprocessing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"cpsroster/pkg/contracts/domain"
)

func TestCleanLabel(t *testing.T) {
	tests := map[string]string{
		"Employee Name":         "employee name",
		"  Dept/Unit\nNumber ":  "dept/unit number",
		"Job_Code":              "job code",
		"Annual\r\nSalary":      "annual salary",
		"ANNUAL  BENEFIT  COST": "annual benefit cost",
		"":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanLabel(in), in)
	}
}

func TestSchemaCanonicalize(t *testing.T) {
	s := DefaultSchema()

	tests := []struct {
		label string
		want  string
	}{
		{"Employee Name", domain.ColName},
		{"Dept/Unit Number", domain.ColUnitNumber},
		{"Dept/Unit\nName", domain.ColUnitName},
		{"JOBCODE", domain.ColJobCode},
		{"Job Description", domain.ColJobTitle},
		{"Department", domain.ColUnitName},
		{"Pos #", domain.ColPositionNumber},
		{"Dept ID", domain.ColUnitNumber},
		{"Gross Salary", domain.ColAnnualSalary},
		{"FTE Salary", domain.ColFTEAnnualSalary},
		{"Annual  Benefit  Cost", domain.ColAnnualBenefitCost},
		{"Position Number", domain.ColPositionNumber},
		{"Budget_Category", domain.ColBudgetCategory},
		{"Mystery Column", "mystery column"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := s.Canonicalize(tt.label)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, s.Canonical(domain.ColClsIndc))
	assert.False(t, s.Canonical("mystery column"))
	assert.Equal(t, "2019.1", s.Version)
}

func TestNewSchemaCustomRenames(t *testing.T) {
	s := NewSchema("test", []string{"name"}, map[string]string{"Full_NAME": "name"})
	assert.Equal(t, "name", s.Canonicalize("full name"))
}

func TestNormalize(t *testing.T) {
	date := day0(2014, 6, 30)
	raw := &domain.RawTable{
		Columns: []string{"Employee Name", "Dept ID", "Dept/Unit Number", "Pos #"},
		Rows: [][]string{
			{"Smith, John", "", "10", "1,234"},
			{"Doe, Jane", "5", "6", "77"},
		},
	}

	got := NewNormalizer(nil).Normalize(raw, date)

	want := &domain.NormalizedTable{
		Date:    date,
		Columns: []string{domain.ColName, domain.ColUnitNumber, domain.ColPositionNumber},
		Rows: [][]string{
			{"Smith, John", "10", "1,234"},
			{"Doe, Jane", "5", "77"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeKeepsUnmappedColumns(t *testing.T) {
	raw := &domain.RawTable{Columns: []string{"Odd_Header"}, Rows: [][]string{{"x"}}}
	got := NewNormalizer(DefaultSchema()).Normalize(raw, day0(2015, 1, 1))
	assert.Equal(t, []string{"odd header"}, got.Columns)
	assert.Equal(t, [][]string{{"x"}}, got.Rows)
}

func TestNormalizeLineEndings(t *testing.T) {
	raw := &domain.RawTable{
		Columns: []string{"Job Title", "Employee Name"},
		Rows:    [][]string{{"Teacher\r\nRegular", "Doe,\rJane"}, {"Clerk\nII", "Smith, John"}},
	}
	got := NewNormalizer(nil).Normalize(raw, day0(2015, 3, 31))
	assert.Equal(t, [][]string{{"Teacher\nRegular", "Doe,\nJane"}, {"Clerk\nII", "Smith, John"}}, got.Rows)

	assert.Equal(t, "a\nb\nc", NormalizeLineEndings("a\r\nb\rc"))
	assert.Equal(t, "plain", NormalizeLineEndings("plain"))
}
