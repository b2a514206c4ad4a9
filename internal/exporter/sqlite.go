package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"cpsroster/pkg/contracts/domain"
)

// SQLiteTable is the table the dataset is exported to
const SQLiteTable = "roster"

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteType(col string) string {
	switch {
	case col == domain.ColPositionNumber || col == domain.ColUnitNumber:
		return "INTEGER"
	case domain.IsNumericColumn(col):
		return "REAL"
	default:
		return "TEXT"
	}
}

// WriteSQLite exports ds to the roster table of the database at path,
// replacing any previous export
func WriteSQLite(ctx context.Context, path string, ds *domain.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	for _, pragma := range []string{"PRAGMA busy_timeout=10000", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	headers := DatasetHeaders(ds)
	defs := make([]string, len(headers))
	names := make([]string, len(headers))
	marks := make([]string, len(headers))
	for i, col := range headers {
		names[i] = quoteIdent(col)
		marks[i] = "?"
		if col == domain.ColDate {
			defs[i] = names[i] + " TEXT NOT NULL"
			continue
		}
		defs[i] = names[i] + " " + sqliteType(col)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	table := quoteIdent(SQLiteTable)
	stmts := []string{
		"DROP TABLE IF EXISTS " + table,
		fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")),
		fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(SQLiteTable+"_date"), table, quoteIdent(domain.ColDate)),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	args := make([]any, len(headers))
	for i, rec := range ds.Records {
		for j, col := range headers {
			args[j] = sqliteValue(rec, col)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func sqliteValue(rec domain.Record, col string) any {
	switch col {
	case domain.ColDate:
		return rec.Date.Format("2006-01-02")
	case domain.ColPositionNumber:
		return rec.PositionNumber
	case domain.ColUnitNumber:
		return rec.UnitNumber
	}
	if n, ok := rec.Numbers[col]; ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return n
	}
	if domain.IsNumericColumn(col) {
		return nil
	}
	return rec.Text[col]
}
