package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"cpsroster/internal/config"
	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/pdftable"
	"cpsroster/pkg/contracts/domain"
)

// SpreadsheetReader reads the table of a spreadsheet document
type SpreadsheetReader interface {
	ReadSpreadsheet(path string) (*domain.RawTable, error)
}

// PDFExtractor reads the table of a PDF document under layout options
type PDFExtractor interface {
	ExtractPDF(path string, opts pdftable.Options) (*domain.RawTable, error)
}

// TableCache persists normalized tables keyed by publication date
type TableCache interface {
	Load(date time.Time) (*domain.NormalizedTable, bool, error)
	Store(table *domain.NormalizedTable) error
}

// ReaderOptions configures a Reader. Nil collaborators get defaults; a nil
// Cache disables caching.
type ReaderOptions struct {
	Spreadsheets SpreadsheetReader
	PDFs         PDFExtractor
	Layouts      *LayoutRegistry
	Normalizer   *Normalizer
	Cache        TableCache
	Cutoff       time.Time
	Replace      bool
	Logger       *slog.Logger
}

// Reader turns one roster document into a normalized table
type Reader struct {
	sheets     SpreadsheetReader
	pdfs       PDFExtractor
	layouts    *LayoutRegistry
	normalizer *Normalizer
	cache      TableCache
	cutoff     time.Time
	replace    bool
	logger     *slog.Logger
}

// NewReader creates a document reader
func NewReader(opts ReaderOptions) *Reader {
	r := &Reader{
		sheets:     opts.Spreadsheets,
		pdfs:       opts.PDFs,
		layouts:    opts.Layouts,
		normalizer: opts.Normalizer,
		cache:      opts.Cache,
		cutoff:     opts.Cutoff,
		replace:    opts.Replace,
		logger:     opts.Logger,
	}
	if r.sheets == nil {
		r.sheets = NewExcelReader()
	}
	if r.pdfs == nil {
		r.pdfs = NewPDFReader()
	}
	if r.layouts == nil {
		r.layouts = DefaultLayouts()
	}
	if r.normalizer == nil {
		r.normalizer = NewNormalizer(nil)
	}
	if r.cutoff.IsZero() {
		r.cutoff = config.DefaultCutoff
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Document describes the file at path
func Document(path string) (domain.SourceDocument, bool) {
	name := filepath.Base(path)
	date, ok := ParseDocumentDate(name)
	return domain.SourceDocument{
		Path:   path,
		Name:   name,
		Format: domain.FormatFromPath(path),
		Date:   date,
	}, ok
}

// Read processes the document at path. It never returns an error: every
// problem becomes a failure on the result so the batch can continue.
func (r *Reader) Read(ctx context.Context, path string) domain.ReadResult {
	doc, ok := Document(path)
	result := domain.ReadResult{Document: doc}

	if !ok {
		return r.skip(ctx, result, domain.StageDate, apperrors.NewDateError(doc.Name))
	}
	if !Readable(doc.Date, r.cutoff) {
		return r.skip(ctx, result, domain.StageCutoff,
			apperrors.NewUnreadableError(path, r.cutoff.Format(config.DateLayout)))
	}

	if r.cache != nil && !r.replace {
		table, found, err := r.cache.Load(doc.Date)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "Cache entry unreadable, re-extracting",
				slog.String("path", path),
				slog.String("error", err.Error()))
		case found:
			result.Table = table
			result.Cached = true
			return result
		}
	}

	raw, err := r.Extract(doc)
	if err != nil {
		err = apperrors.NewExtractionError(path, err)
		r.logger.ErrorContext(ctx, "Document extraction failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		result.Failure = &domain.DocumentFailure{
			Path:  path,
			Date:  doc.Date,
			Stage: domain.StageExtract,
			Cause: err.Error(),
		}
		return result
	}

	result.Table = r.normalizer.Normalize(raw, doc.Date)

	if r.cache != nil {
		if err := r.cache.Store(result.Table); err != nil {
			r.logger.WarnContext(ctx, "Failed to write cache entry",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	r.logger.DebugContext(ctx, "Document read",
		slog.String("path", path),
		slog.Int("rows", result.Table.Len()),
		slog.Int("columns", len(result.Table.Columns)))
	return result
}

func (r *Reader) skip(ctx context.Context, result domain.ReadResult, stage domain.ReadStage, err error) domain.ReadResult {
	r.logger.WarnContext(ctx, "Skipping document",
		slog.String("path", result.Document.Path),
		slog.String("stage", string(stage)),
		slog.String("reason", err.Error()))
	result.Skipped = true
	result.Failure = &domain.DocumentFailure{
		Path:  result.Document.Path,
		Date:  result.Document.Date,
		Stage: stage,
		Cause: err.Error(),
	}
	return result
}

// Extract pulls the raw table out of a document, dispatching on its format.
// PDF extraction follows the layout registered for the document's date.
func (r *Reader) Extract(doc domain.SourceDocument) (*domain.RawTable, error) {
	switch doc.Format {
	case domain.FormatSpreadsheet:
		return r.sheets.ReadSpreadsheet(doc.Path)
	case domain.FormatPDF:
		layout, err := r.layouts.Resolve(doc.Date)
		if err != nil {
			return nil, err
		}
		raw, err := r.pdfs.ExtractPDF(doc.Path, layout.Options)
		if err != nil {
			return nil, err
		}
		for _, fix := range layout.Fixups {
			if err := fix(raw); err != nil {
				return nil, fmt.Errorf("layout %s: %w", layout.Name, err)
			}
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported format for %s", doc.Name)
	}
}
