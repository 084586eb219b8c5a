package datasource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

// maxLineLength is the longest table line accepted.
const maxLineLength = 1024 * 1024

// TableDataSource reads rows from a UTF-8 text table: one row per line, columns
// separated by tabs.
//
// Blank lines and lines starting with '!' (comments) are skipped. The kind of a row
// is taken from the first character of its first column (trimmed and lowercased);
// a row with any other first character ends the table.
type TableDataSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	columns []string
	kind    veo.RowKind
	atEnd   bool
	line    int
	err     error
}

var _ veo.DataSource = (*TableDataSource)(nil)

// OpenTable opens the table file at path and reads its first row.
// The caller must Close the returned data source.
func OpenTable(path string) (*TableDataSource, error) {
	const op = "datasource.OpenTable"

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, veo.WrapNotFoundError(err, op, fmt.Sprintf("input file '%s' not found", path))
		}
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("failed to open input file '%s'", path))
	}
	t := NewTableDataSource(f)
	t.closer = f
	return t, nil
}

// NewTableDataSource reads a table from r and positions it on the first row.
func NewTableDataSource(r io.Reader) *TableDataSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	t := &TableDataSource{scanner: scanner}
	t.readRow()
	return t
}

func (t *TableDataSource) readRow() veo.RowKind {
	if t.atEnd {
		return veo.RowAtEnd
	}

	var line string
	for {
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				t.err = veo.WrapIOError(err, "datasource.TableDataSource", fmt.Sprintf("failed reading line %d", t.line+1))
			}
			return t.end()
		}
		t.line++
		line = strings.TrimSuffix(t.scanner.Text(), "\r")
		if t.line == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line != "" && line[0] != '!' {
			break
		}
	}

	t.columns = strings.Split(line, "\t")
	flag := strings.ToLower(strings.TrimSpace(t.columns[0]))
	t.kind = veo.RowKindFromFlag(flag)
	if t.kind == veo.RowUnknown {
		return t.end()
	}
	return t.kind
}

func (t *TableDataSource) end() veo.RowKind {
	t.atEnd = true
	t.kind = veo.RowAtEnd
	t.columns = nil
	return veo.RowAtEnd
}

func (t *TableDataSource) ColumnCount() int { return len(t.columns) }

func (t *TableDataSource) Column(i int) string {
	return columnAt(t.columns, i, t.atEnd)
}

func (t *TableDataSource) RowKind() veo.RowKind { return t.kind }

func (t *TableDataSource) AdvanceRow() veo.RowKind { return t.readRow() }

func (t *TableDataSource) AtEnd() bool { return t.atEnd }

// Line returns the line number of the current row.
func (t *TableDataSource) Line() int { return t.line }

// Err returns the read error that ended the table early, if any.
func (t *TableDataSource) Err() error { return t.err }

// Close closes the underlying file when the table was opened with OpenTable.
func (t *TableDataSource) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	return err
}
