package dataprocessing

import (
	"strings"
	"time"

	"cpsroster/pkg/contracts/domain"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeLineEndings rewrites CRLF and lone CR as LF. Delimited-text
// readers fold CRLF inside quoted fields, so cells are stored this way.
func NormalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return lineEndings.Replace(s)
}

// Normalizer canonicalizes raw table headers against a schema
type Normalizer struct {
	schema *Schema
}

// NewNormalizer creates a normalizer. A nil schema uses DefaultSchema.
func NewNormalizer(schema *Schema) *Normalizer {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Normalizer{schema: schema}
}

// Schema returns the schema in use
func (n *Normalizer) Schema() *Schema {
	return n.schema
}

// Normalize renames raw headers into the canonical vocabulary and tags the
// table with its publication date. Headers that collapse onto the same label
// are merged left to right, the first non-empty cell winning. Cell line
// endings are normalized to LF.
func (n *Normalizer) Normalize(raw *domain.RawTable, date time.Time) *domain.NormalizedTable {
	columns := make([]string, 0, len(raw.Columns))
	target := make([]int, len(raw.Columns))
	seen := make(map[string]int, len(raw.Columns))

	for i, label := range raw.Columns {
		canonical := n.schema.Canonicalize(label)
		if j, ok := seen[canonical]; ok {
			target[i] = j
			continue
		}
		seen[canonical] = len(columns)
		target[i] = len(columns)
		columns = append(columns, canonical)
	}

	rows := make([][]string, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		out := make([]string, len(columns))
		for i, v := range row {
			if i >= len(target) {
				break
			}
			if out[target[i]] == "" {
				out[target[i]] = NormalizeLineEndings(v)
			}
		}
		rows = append(rows, out)
	}

	return &domain.NormalizedTable{
		Date:    date,
		Columns: columns,
		Rows:    rows,
	}
}
