package exporter

import (
	"fmt"

	"cpsroster/pkg/contracts/domain"
)

// DatasetHeaders returns the export header: the date index, then the columns
func DatasetHeaders(ds *domain.Dataset) []string {
	return append([]string{domain.ColDate}, ds.Columns...)
}

// WriteDataset exports ds as delimited text, one row per record
func (w *CSVWriter) WriteDataset(filePath string, ds *domain.Dataset) error {
	headers := DatasetHeaders(ds)

	stream, err := w.CreateStreamWriter(filePath, headers, true)
	if err != nil {
		return err
	}

	row := make([]string, len(headers))
	for i, rec := range ds.Records {
		for j, col := range headers {
			row[j] = rec.Value(col)
		}
		if err := stream.WriteRecord(row); err != nil {
			stream.Abort()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return stream.Close()
}
