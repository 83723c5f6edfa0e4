package vocab

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Table is a small column-addressed view over a delimited release file.
// Rows may be ragged; Field reads past-the-end columns as empty.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// TableOptions controls delimited parsing. With Header set, the first row
// names the columns; otherwise Columns must be given (and may cover only a
// prefix of the physical fields).
type TableOptions struct {
	Comma   rune
	Header  bool
	Columns []string
	Comment rune
}

// ReadTable parses a delimited release file into memory.
func ReadTable(path string, opts TableOptions) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ','
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
	}

	table := &Table{Columns: opts.Columns}
	if opts.Header {
		if len(rows) == 0 {
			return nil, fmt.Errorf("vocab: %s has no header row", path)
		}
		table.Columns = rows[0]
		rows = rows[1:]
	}
	table.Rows = rows
	table.index = make(map[string]int, len(table.Columns))
	for i, name := range table.Columns {
		table.index[name] = i
	}
	return table, nil
}

// Field reads one column of a row, or "" when the row or schema does not
// carry it.
func (t *Table) Field(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Has reports whether the schema carries a column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}
