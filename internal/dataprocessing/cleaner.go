package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/infrastructure"
	"cpsroster/pkg/contracts/domain"
)

const nbsp = "\u00a0"

// Drop reasons reported in metrics and logs
const (
	DropBadIndex     = "bad_index"
	DropNullPosition = "null_position"
	DropHeaderRow    = "header_row"
)

// indexLayouts are the accepted spellings of a row's date index
var indexLayouts = []string{"2006-01-02", "2006-01-02 15:04:05"}

// headerPrefixes mark page headers and banners that leak into PDF tables
var headerPrefixes = []string{"Chicago Public", "POSITION", "Position"}

// moneyColumns hold currency text that is stripped before coercion
var moneyColumns = []string{
	domain.ColAnnualSalary, domain.ColFTEAnnualSalary,
	domain.ColTotalPositionCost, domain.ColAnnualBenefitCost,
}

// DroppedColumns are removed from the final dataset
var DroppedColumns = []string{
	domain.ColTotalPositionCost, domain.ColClsIndc, domain.ColFTEAnnualSalary,
	domain.ColBudgetCategory, domain.ColAnnualBenefitCost,
}

// CleanOptions toggles optional cleaning steps
type CleanOptions struct {
	// NormalizeNames tidies the name column (see CleanName)
	NormalizeNames bool
}

// Cleaner turns a joined frame into the final dataset
type Cleaner struct {
	opts    CleanOptions
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewCleaner creates a cleaner. A nil logger or metrics set is replaced
// with a default.
func NewCleaner(opts CleanOptions, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &Cleaner{opts: opts, logger: logger, metrics: metrics}
}

type cleanRow struct {
	date time.Time
	text map[string]string
	nums map[string]float64
}

// Clean runs the cleaning steps in order. Any error is fatal for the run.
func (c *Cleaner) Clean(ctx context.Context, frame *domain.Frame) (*domain.Dataset, error) {
	c.metrics.RowsJoined.Add(ctx, int64(len(frame.Rows)))

	rows := c.parseIndex(ctx, frame.Rows)
	rows = c.dropHeaderLeakage(ctx, rows)
	stripMoney(rows)

	textCols := textColumns(frame.Columns)
	if err := coerce(rows, textCols); err != nil {
		return nil, err
	}

	if c.opts.NormalizeNames {
		for _, r := range rows {
			if v, ok := r.text[domain.ColName]; ok {
				r.text[domain.ColName] = CleanName(v)
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	records, err := castIntegers(rows)
	if err != nil {
		return nil, err
	}

	ds := &domain.Dataset{
		Columns: outputColumns(frame),
		Records: records,
	}
	c.logger.InfoContext(ctx, "Joined dataset cleaned",
		slog.Int("rows_in", len(frame.Rows)),
		slog.Int("rows_out", ds.Len()),
		slog.Int("columns", len(ds.Columns)))
	return ds, nil
}

func (c *Cleaner) drop(ctx context.Context, reason string, n int) {
	if n == 0 {
		return
	}
	c.metrics.RecordDropped(ctx, reason, n)
	c.logger.DebugContext(ctx, "Dropped rows", slog.String("reason", reason), slog.Int("count", n))
}

func parseIndex(index string) (time.Time, bool) {
	index = strings.TrimSpace(index)
	for _, layout := range indexLayouts {
		if d, err := time.Parse(layout, index); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func (c *Cleaner) parseIndex(ctx context.Context, in []domain.FrameRow) []*cleanRow {
	out := make([]*cleanRow, 0, len(in))
	for _, fr := range in {
		d, ok := parseIndex(fr.Index)
		if !ok {
			continue
		}
		text := make(map[string]string, len(fr.Cells))
		for k, v := range fr.Cells {
			text[k] = v
		}
		out = append(out, &cleanRow{date: d, text: text})
	}
	c.drop(ctx, DropBadIndex, len(in)-len(out))
	return out
}

func isHeaderLeak(pos string) bool {
	if pos == "Position Number" {
		return true
	}
	for _, p := range headerPrefixes {
		if strings.HasPrefix(pos, p) {
			return true
		}
	}
	return false
}

func (c *Cleaner) dropHeaderLeakage(ctx context.Context, in []*cleanRow) []*cleanRow {
	out := in[:0]
	var nulls, headers int
	for _, r := range in {
		pos := r.text[domain.ColPositionNumber]
		switch {
		case pos == "":
			nulls++
		case isHeaderLeak(pos):
			headers++
		default:
			out = append(out, r)
		}
	}
	c.drop(ctx, DropHeaderRow, headers)
	c.drop(ctx, DropNullPosition, nulls)
	return out
}

func stripMoney(rows []*cleanRow) {
	for _, col := range moneyColumns {
		for _, r := range rows {
			v, ok := r.text[col]
			if !ok {
				continue
			}
			v = strings.ReplaceAll(v, ",", "")
			v = strings.ReplaceAll(v, "nan", "")
			v = strings.ReplaceAll(v, "$", "")
			if strings.Contains(col, "cost") {
				v = strings.ReplaceAll(v, nbsp, "")
			}
			r.text[col] = v
		}
	}
}

func textColumns(columns []string) []string {
	var out []string
	for _, col := range columns {
		if !domain.IsNumericColumn(col) && col != domain.ColDate {
			out = append(out, col)
		}
	}
	return out
}

// ParseNumber coerces a cell to a number. Empty cells and "nan" are NaN.
// Dollar signs, thousands separators and non-breaking spaces are tolerated.
func ParseNumber(v string) (float64, error) {
	v = strings.ReplaceAll(v, "$", "")
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, nbsp, "")
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}

func coerce(rows []*cleanRow, textCols []string) error {
	for _, r := range rows {
		r.nums = make(map[string]float64, len(domain.NumericColumns))
		for _, col := range domain.NumericColumns {
			raw := r.text[col]
			n, err := ParseNumber(raw)
			if err != nil {
				return apperrors.NewCoercionError(col, raw, err).
					WithContext("date", r.date.Format("2006-01-02"))
			}
			r.nums[col] = n
			delete(r.text, col)
		}
		for _, col := range textCols {
			if v := r.text[col]; v == "nan" {
				r.text[col] = ""
			} else {
				r.text[col] = v
			}
		}
	}
	return nil
}

func toInt(col string, v float64, date time.Time) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewCoercionError(col, fmt.Sprint(v), fmt.Errorf("cannot cast to integer")).
			WithContext("date", date.Format("2006-01-02"))
	}
	return int64(v), nil
}

func castIntegers(rows []*cleanRow) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		ints := make(map[string]int64, len(domain.IntegerColumns))
		for _, col := range domain.IntegerColumns {
			v, err := toInt(col, r.nums[col], r.date)
			if err != nil {
				return nil, err
			}
			ints[col] = v
			delete(r.nums, col)
		}
		for _, col := range DroppedColumns {
			delete(r.nums, col)
			delete(r.text, col)
		}
		records = append(records, domain.Record{
			Date:           r.date,
			PositionNumber: ints[domain.ColPositionNumber],
			UnitNumber:     ints[domain.ColUnitNumber],
			Numbers:        r.nums,
			Text:           r.text,
		})
	}
	return records, nil
}

// outputColumns keeps the frame's column order, drops the low-value columns
// and appends numeric columns that no source table carried.
func outputColumns(frame *domain.Frame) []string {
	dropped := make(map[string]bool, len(DroppedColumns))
	for _, c := range DroppedColumns {
		dropped[c] = true
	}
	var out []string
	for _, c := range frame.Columns {
		if !dropped[c] && c != domain.ColDate {
			out = append(out, c)
		}
	}
	for _, c := range domain.NumericColumns {
		if !frame.HasColumn(c) && !dropped[c] {
			out = append(out, c)
		}
	}
	return out
}
