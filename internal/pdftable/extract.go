// Package pdftable recovers tables from PDF documents. pdfcpu validates the
// document; github.com/ledongthuc/pdf decodes each page into positioned
// glyphs and rectangles, with font encodings and ToUnicode maps applied.
// Rows are rebuilt either from the ruling rectangles (lattice) or from text
// alignment (stream).
package pdftable

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Options selects how a document's table is rebuilt
type Options struct {
	// Lattice builds cells from ruling lines instead of text alignment
	Lattice bool
	// SkipRows drops leading rows before the header row
	SkipRows int
}

// Table is the header row plus data rows of an extracted table
type Table struct {
	Columns []string
	Rows    [][]string
}

// Extract reads the PDF at path and returns its table
func Extract(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ExtractFrom(f, opts)
}

// ExtractFrom reads a PDF from rs and returns its table. The rows of every
// page are concatenated in page order.
func ExtractFrom(rs io.ReadSeeker, opts Options) (*Table, error) {
	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, fmt.Errorf("pdfcpu validate: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}

	pages := make([]*Page, 0, r.NumPage())
	for pageNr := 1; pageNr <= r.NumPage(); pageNr++ {
		p := r.Page(pageNr)
		if p.V.IsNull() {
			continue
		}
		content, err := pageContent(p)
		if err != nil {
			return nil, fmt.Errorf("page %d content: %w", pageNr, err)
		}
		pages = append(pages, pageFromContent(content))
	}
	return Build(pages, opts)
}

// pageContent decodes a page, turning a malformed content stream into an error
func pageContent(p pdf.Page) (c pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return p.Content(), nil
}

// Build assembles a table from decoded pages
func Build(pages []*Page, opts Options) (*Table, error) {
	var rows [][]string
	for _, p := range pages {
		if opts.Lattice {
			rows = append(rows, LatticeRows(p)...)
		} else {
			rows = append(rows, StreamRows(p)...)
		}
	}

	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			rows = nil
		} else {
			rows = rows[opts.SkipRows:]
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no table found")
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	for i, r := range rows {
		if len(r) < width {
			rows[i] = append(r, make([]string, width-len(r))...)
		}
	}

	return &Table{Columns: rows[0], Rows: rows[1:]}, nil
}
