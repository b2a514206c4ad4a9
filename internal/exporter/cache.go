package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"cpsroster/internal/config"
	"cpsroster/internal/dataprocessing"
	"cpsroster/pkg/contracts/domain"
)

// Cache stores one normalized table per publication date as delimited text.
// The first column is the date index; the rest follow the table's columns.
type Cache struct {
	paths  *config.Paths
	writer *CSVWriter
}

// NewCache creates a per-file cache under paths.CSVDir
func NewCache(paths *config.Paths) *Cache {
	return &Cache{paths: paths, writer: NewCSVWriter(paths)}
}

// Path returns the cache file for a publication date
func (c *Cache) Path(date time.Time) string {
	return c.paths.GetCachePath(dataprocessing.CacheFileName(date))
}

// Store writes a table, replacing any existing entry for its date. Cell
// line endings are written as LF so a loaded entry stores back unchanged.
func (c *Cache) Store(table *domain.NormalizedTable) error {
	index := table.Date.Format(config.DateLayout)

	headers := append([]string{domain.ColDate}, table.Columns...)
	records := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		record := make([]string, 0, len(row)+1)
		record = append(record, index)
		for _, v := range row {
			record = append(record, dataprocessing.NormalizeLineEndings(v))
		}
		records[i] = record
	}

	if err := c.writer.WriteCSV(c.Path(table.Date), WriteOptions{Headers: headers, Records: records}); err != nil {
		return fmt.Errorf("failed to store cache entry for %s: %w", index, err)
	}
	return nil
}

// Load reads the entry for date. A missing entry is not an error.
func (c *Cache) Load(date time.Time) (*domain.NormalizedTable, bool, error) {
	f, err := os.Open(c.Path(date))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse cache entry %s: %w", f.Name(), err)
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != domain.ColDate {
		return nil, false, fmt.Errorf("cache entry %s has no %q index column", f.Name(), domain.ColDate)
	}

	table := &domain.NormalizedTable{
		Date:    date,
		Columns: records[0][1:],
		Rows:    make([][]string, 0, len(records)-1),
	}
	for _, r := range records[1:] {
		table.Rows = append(table.Rows, r[1:])
	}
	return table, true, nil
}
