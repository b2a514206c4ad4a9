// Package dataprocessing turns downloaded roster documents into one cleaned
// dataset. It covers the whole reconciliation path from file name to final
// record.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Date extraction: ParseDocumentDate reads the publication date out of a file name
// 2. Reading: Reader dispatches on format and applies the PDF layout registered for the date
// 3. Normalization: Normalizer maps raw headers onto the canonical Schema
// 4. Cleaning: Join and Cleaner fold all tables into the final Dataset
//
// # Usage
//
//	reader := dataprocessing.NewReader(dataprocessing.ReaderOptions{
//	    Cache:  cache,
//	    Logger: logger,
//	})
//	result := reader.Read(ctx, "raw/EmployeePositionRoster_07112012.pdf")
//	if !result.OK() {
//	    // result.Failure names the path and cause
//	}
//
//	cleaner := dataprocessing.NewCleaner(dataprocessing.CleanOptions{NormalizeNames: true}, logger, metrics)
//	ds, err := cleaner.Clean(ctx, dataprocessing.Join(tables))
//
// # PDF layouts
//
// The roster PDFs were redesigned several times. Each era is an entry in a
// LayoutRegistry, so supporting a new era means registering a Layout:
//
//	registry := dataprocessing.DefaultLayouts()
//	registry.Register(dataprocessing.Layout{
//	    Name:    "lattice-2020",
//	    From:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
//	    Options: pdftable.Options{Lattice: true},
//	})
//
// # Error Handling
//
// Reading never aborts a batch: date, cutoff and extraction problems come back
// as a DocumentFailure on the ReadResult. Cleaning errors are fatal and carry
// the offending column and value as a COERCION AppError.
package dataprocessing
