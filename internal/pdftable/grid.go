package pdftable

import (
	"math"
	"sort"
	"strings"
)

const (
	// lineGap is the vertical distance, in font sizes, that starts a new line
	lineGap = 0.5
	// columnGap is the minimum horizontal whitespace between stream columns
	columnGap = 3.0
)

// cluster merges sorted values closer than tol and returns each group's mean
func cluster(values []float64, tol float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var out []float64
	sum, n := sorted[0], 1
	for _, v := range sorted[1:] {
		if v-sum/float64(n) <= tol {
			sum += v
			n++
			continue
		}
		out = append(out, sum/float64(n))
		sum, n = v, 1
	}
	return append(out, sum/float64(n))
}

// joinCell orders fragments top to bottom then left to right
func joinCell(frags []Fragment) string {
	sort.SliceStable(frags, func(i, j int) bool {
		if math.Abs(frags[i].Y-frags[j].Y) > lineGap*math.Max(frags[i].Size, 1) {
			return frags[i].Y > frags[j].Y
		}
		return frags[i].X < frags[j].X
	})
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// LatticeRows builds rows from the cells bounded by ruling lines. A page
// without at least two rules in each direction has no table.
func LatticeRows(p *Page) [][]string {
	var vx, hy []float64
	for _, s := range p.Segments {
		switch {
		case s.Vertical():
			vx = append(vx, (s.X0+s.X1)/2)
		case s.Horizontal():
			hy = append(hy, (s.Y0+s.Y1)/2)
		}
	}
	xs := cluster(vx, ruleTolerance)
	ys := cluster(hy, ruleTolerance)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}

	nrows, ncols := len(ys)-1, len(xs)-1
	cells := make([][][]Fragment, nrows)
	for i := range cells {
		cells[i] = make([][]Fragment, ncols)
	}

	for _, f := range p.Fragments {
		c := sort.SearchFloat64s(xs, f.Mid()) - 1
		r := sort.SearchFloat64s(ys, f.Y+f.Size*0.3) - 1
		if c < 0 || c >= ncols || r < 0 || r >= nrows {
			continue
		}
		// ys ascend bottom-up; rows read top-down
		top := nrows - 1 - r
		cells[top][c] = append(cells[top][c], f)
	}

	var rows [][]string
	for _, line := range cells {
		row := make([]string, ncols)
		for c, frags := range line {
			row[c] = joinCell(frags)
		}
		if !blank(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

// StreamRows builds rows from text alone. Columns are the runs of the page
// covered by text, separated by whitespace gaps; lines are baseline clusters.
func StreamRows(p *Page) [][]string {
	if len(p.Fragments) == 0 {
		return nil
	}
	bounds := columnBounds(p.Fragments)

	frags := append([]Fragment(nil), p.Fragments...)
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].Y > frags[j].Y })

	var lines [][]Fragment
	for _, f := range frags {
		n := len(lines)
		if n > 0 {
			prev := lines[n-1][0]
			if prev.Y-f.Y <= lineGap*math.Max(prev.Size, 1) {
				lines[n-1] = append(lines[n-1], f)
				continue
			}
		}
		lines = append(lines, []Fragment{f})
	}

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		cells := make([][]Fragment, len(bounds)+1)
		for _, f := range line {
			c := sort.SearchFloat64s(bounds, f.Mid())
			cells[c] = append(cells[c], f)
		}
		row := make([]string, len(cells))
		for c, cf := range cells {
			row[c] = joinCell(cf)
		}
		rows = append(rows, row)
	}
	return rows
}

// columnBounds returns the x positions separating text columns
func columnBounds(frags []Fragment) []float64 {
	spans := append([]Fragment(nil), frags...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].X < spans[j].X })

	var bounds []float64
	end := spans[0].X1
	for _, f := range spans[1:] {
		if f.X > end+columnGap {
			bounds = append(bounds, (end+f.X)/2)
		}
		end = math.Max(end, f.X1)
	}
	return bounds
}
