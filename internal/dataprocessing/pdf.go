package dataprocessing

import (
	"cpsroster/internal/pdftable"
	"cpsroster/pkg/contracts/domain"
)

// PDFReader extracts roster tables with pdftable
type PDFReader struct{}

// NewPDFReader creates a PDF extractor
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// ExtractPDF returns the document's table under opts
func (p *PDFReader) ExtractPDF(path string, opts pdftable.Options) (*domain.RawTable, error) {
	t, err := pdftable.Extract(path, opts)
	if err != nil {
		return nil, err
	}
	return &domain.RawTable{Columns: t.Columns, Rows: t.Rows}, nil
}
