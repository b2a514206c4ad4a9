package dataprocessing

import (
	"fmt"
	"strings"
	"time"

	"cpsroster/internal/pdftable"
	"cpsroster/pkg/contracts/domain"
)

// Fixup repairs a raw table extracted under a specific layout
type Fixup func(t *domain.RawTable) error

// Layout is one era of the published PDF format. A layout covers dates in
// [From, Until); a zero bound is open.
type Layout struct {
	Name    string
	From    time.Time
	Until   time.Time
	Options pdftable.Options
	Fixups  []Fixup
}

// Matches reports whether date falls inside the layout's range
func (l Layout) Matches(date time.Time) bool {
	if !l.From.IsZero() && date.Before(l.From) {
		return false
	}
	if !l.Until.IsZero() && !date.Before(l.Until) {
		return false
	}
	return true
}

// LayoutRegistry is an ordered list of layouts; the first match wins
type LayoutRegistry struct {
	layouts []Layout
}

// NewLayoutRegistry creates a registry from layouts in priority order
func NewLayoutRegistry(layouts ...Layout) *LayoutRegistry {
	return &LayoutRegistry{layouts: append([]Layout(nil), layouts...)}
}

// Register adds a layout ahead of every registered one
func (r *LayoutRegistry) Register(l Layout) {
	r.layouts = append([]Layout{l}, r.layouts...)
}

// Resolve returns the layout for a publication date
func (r *LayoutRegistry) Resolve(date time.Time) (Layout, error) {
	for _, l := range r.layouts {
		if l.Matches(date) {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("no PDF layout registered for %s", date.Format("2006-01-02"))
}

// Layouts returns the registered layouts in priority order
func (r *LayoutRegistry) Layouts() []Layout {
	return append([]Layout(nil), r.layouts...)
}

var (
	// TransitionalDate is the one roster published without ruled table borders
	TransitionalDate = time.Date(2012, time.July, 11, 0, 0, 0, 0, time.UTC)
	// HeaderlessDate is the roster whose header row cannot be recovered
	HeaderlessDate = time.Date(2010, time.July, 1, 0, 0, 0, 0, time.UTC)
)

// headerlessColumns is the physical column order of the HeaderlessDate roster
var headerlessColumns = []string{
	domain.ColPositionNumber, "budget_category", domain.ColUnitNumber,
	domain.ColUnitName, domain.ColName, domain.ColJobTitle,
	domain.ColAnnualSalary, domain.ColFTE, domain.ColUnionAffiliation,
}

func day(d time.Time) (time.Time, time.Time) {
	return d, d.AddDate(0, 0, 1)
}

// DefaultLayouts returns the PDF eras of the roster series, most specific first
func DefaultLayouts() *LayoutRegistry {
	transFrom, transUntil := day(TransitionalDate)
	headFrom, headUntil := day(HeaderlessDate)

	return NewLayoutRegistry(
		Layout{
			Name:    "transitional-2012-07-11",
			From:    transFrom,
			Until:   transUntil,
			Options: pdftable.Options{Lattice: false, SkipRows: 0},
			Fixups:  []Fixup{SplitFTESalary},
		},
		Layout{
			Name:    "fixed-header-2010-07-01",
			From:    headFrom,
			Until:   headUntil,
			Options: pdftable.Options{Lattice: true, SkipRows: 1},
			Fixups:  []Fixup{FixedHeader(headerlessColumns)},
		},
		Layout{
			Name:    "lattice-after-2012-07-11",
			From:    transUntil,
			Options: pdftable.Options{Lattice: true, SkipRows: 0},
		},
		Layout{
			Name:    "lattice-before-2012-07-11",
			Until:   transFrom,
			Options: pdftable.Options{Lattice: true, SkipRows: 1},
		},
	)
}

// SplitFTESalary breaks the combined "FTE Salary" column of the transitional
// roster into fte, annual salary and union affiliation, then drops the
// combined column and the duplicate "Union Affiliation" column.
func SplitFTESalary(t *domain.RawTable) error {
	idx := t.ColumnIndex("FTE Salary")
	if idx < 0 {
		return fmt.Errorf("column %q not found", "FTE Salary")
	}

	fte := make([]string, len(t.Rows))
	salary := make([]string, len(t.Rows))
	union := make([]string, len(t.Rows))

	for r, row := range t.Rows {
		tokens := strings.Split(row[idx], " ")
		if len(tokens) > 0 {
			fte[r] = tokens[0]
		}
		if len(tokens) > 1 {
			salary[r] = strings.ReplaceAll(strings.TrimLeft(tokens[1], "$"), ",", "")
		}
		if len(tokens) > 2 {
			joined := strings.Join(tokens[2:], " ")
			union[r] = strings.TrimSpace(strings.ReplaceAll(joined, "None", ""))
		}
	}

	t.DropColumns("FTE Salary", "Union Affiliation")
	t.SetColumn(domain.ColFTE, fte)
	t.SetColumn(domain.ColAnnualSalary, salary)
	t.SetColumn(domain.ColUnionAffiliation, union)
	return nil
}

// FixedHeader replaces the extracted header with a known column order
func FixedHeader(columns []string) Fixup {
	return func(t *domain.RawTable) error {
		if len(t.Columns) != len(columns) {
			return fmt.Errorf("expected %d columns, extracted %d", len(columns), len(t.Columns))
		}
		t.Columns = append([]string(nil), columns...)
		return nil
	}
}
