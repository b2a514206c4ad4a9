package dataprocessing

import (
	"cpsroster/internal/config"
	"cpsroster/pkg/contracts/domain"
)

// Join concatenates normalized tables into one frame. Columns are the union
// of every table's columns in first-seen order; each row's index is its
// table's date.
func Join(tables []*domain.NormalizedTable) *domain.Frame {
	frame := &domain.Frame{}
	seen := make(map[string]bool)

	total := 0
	for _, t := range tables {
		total += t.Len()
	}
	frame.Rows = make([]domain.FrameRow, 0, total)

	for _, t := range tables {
		for _, c := range t.Columns {
			if c == domain.ColDate || seen[c] {
				continue
			}
			seen[c] = true
			frame.Columns = append(frame.Columns, c)
		}

		index := t.Date.Format(config.DateLayout)
		for _, row := range t.Rows {
			cells := make(map[string]string, len(t.Columns))
			for i, c := range t.Columns {
				if i < len(row) && c != domain.ColDate {
					cells[c] = row[i]
				}
			}
			frame.Rows = append(frame.Rows, domain.FrameRow{Index: index, Cells: cells})
		}
	}
	return frame
}
