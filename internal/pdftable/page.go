package pdftable

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Fragment is a run of text placed on the page, in user space units
type Fragment struct {
	X, Y float64 // baseline origin
	X1   float64 // end of the run
	Size float64 // effective font size
	Text string
}

// Mid returns the horizontal center of the fragment
func (f Fragment) Mid() float64 {
	return (f.X + f.X1) / 2
}

// Segment is a straight ruling line
type Segment struct {
	X0, Y0, X1, Y1 float64
}

// Horizontal reports whether the segment is a horizontal rule
func (s Segment) Horizontal() bool {
	return math.Abs(s.Y1-s.Y0) <= ruleTolerance && math.Abs(s.X1-s.X0) > ruleTolerance
}

// Vertical reports whether the segment is a vertical rule
func (s Segment) Vertical() bool {
	return math.Abs(s.X1-s.X0) <= ruleTolerance && math.Abs(s.Y1-s.Y0) > ruleTolerance
}

// Page holds the text and rules recovered from one page
type Page struct {
	Fragments []Fragment
	Segments  []Segment
}

const (
	// ruleTolerance is the thickness under which a rectangle counts as a line
	ruleTolerance = 2.0
	// joinGap is the horizontal gap, in font sizes, across which glyphs join one run
	joinGap = 1.0
	// spaceGap is the gap, in font sizes, read as a word space
	spaceGap = 0.15
)

// pageFromContent turns the positioned glyphs and rectangles of a page into
// text runs and ruling lines. Runs never cross a vertical rule.
func pageFromContent(c pdf.Content) *Page {
	p := &Page{}
	for _, r := range c.Rect {
		p.Segments = append(p.Segments, rectSegments(r)...)
	}

	var rules []float64
	for _, s := range p.Segments {
		if s.Vertical() {
			rules = append(rules, s.X0)
		}
	}

	for _, line := range glyphLines(c.Text) {
		p.Fragments = append(p.Fragments, lineFragments(line, rules)...)
	}
	return p
}

// rectSegments returns the rules a rectangle draws: one line for a thin
// rectangle, its four edges otherwise.
func rectSegments(r pdf.Rect) []Segment {
	x0, x1 := math.Min(r.Min.X, r.Max.X), math.Max(r.Min.X, r.Max.X)
	y0, y1 := math.Min(r.Min.Y, r.Max.Y), math.Max(r.Min.Y, r.Max.Y)
	w, h := x1-x0, y1-y0

	switch {
	case w <= ruleTolerance && h <= ruleTolerance:
		return nil
	case w <= ruleTolerance:
		x := (x0 + x1) / 2
		return []Segment{{X0: x, Y0: y0, X1: x, Y1: y1}}
	case h <= ruleTolerance:
		y := (y0 + y1) / 2
		return []Segment{{X0: x0, Y0: y, X1: x1, Y1: y}}
	}
	return []Segment{
		{X0: x0, Y0: y0, X1: x1, Y1: y0},
		{X0: x0, Y0: y1, X1: x1, Y1: y1},
		{X0: x0, Y0: y0, X1: x0, Y1: y1},
		{X0: x1, Y0: y0, X1: x1, Y1: y1},
	}
}

func fontSize(t pdf.Text) float64 {
	if t.FontSize <= 0 {
		return 1
	}
	return t.FontSize
}

// glyphLines groups glyphs sharing a baseline, top of the page first, each
// line ordered left to right
func glyphLines(glyphs []pdf.Text) [][]pdf.Text {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := append([]pdf.Text(nil), glyphs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines [][]pdf.Text
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[start].Y-sorted[i].Y <= lineGap*fontSize(sorted[start]) {
			continue
		}
		line := sorted[start:i]
		sort.SliceStable(line, func(a, b int) bool { return line[a].X < line[b].X })
		lines = append(lines, line)
		start = i
	}
	return lines
}

func ruleBetween(rules []float64, from, to float64) bool {
	for _, x := range rules {
		if x > from && x < to {
			return true
		}
	}
	return false
}

// lineFragments joins the glyphs of one line into runs
func lineFragments(line []pdf.Text, rules []float64) []Fragment {
	var out []Fragment
	var cur *Fragment
	var b strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		if text := strings.Join(strings.Fields(b.String()), " "); text != "" {
			cur.Text = text
			out = append(out, *cur)
		}
		cur = nil
		b.Reset()
	}

	for _, g := range line {
		size := fontSize(g)
		if cur != nil {
			gap := g.X - cur.X1
			if gap > joinGap*size || ruleBetween(rules, cur.X1-ruleTolerance/2, g.X+g.W/2) {
				flush()
			} else if gap > spaceGap*size {
				b.WriteByte(' ')
			}
		}
		if cur == nil {
			if strings.TrimSpace(g.S) == "" {
				continue
			}
			cur = &Fragment{X: g.X, Y: g.Y, X1: g.X, Size: size}
		}
		b.WriteString(g.S)
		cur.X1 = math.Max(cur.X1, g.X+g.W)
		cur.Size = math.Max(cur.Size, size)
	}
	flush()
	return out
}
