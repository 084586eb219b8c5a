package datasource

import "github.com/information-sharing-networks/veogen/internal/veo"

// ListDataSource iterates over rows held in memory. The kind of each row is given by
// its first column, which must be exactly one of "f", "r", "d", "e" or "s".
type ListDataSource struct {
	rows [][]string
	row  int
}

var _ veo.DataSource = (*ListDataSource)(nil)

func NewListDataSource(rows [][]string) *ListDataSource {
	return &ListDataSource{rows: rows}
}

func (l *ListDataSource) current() []string {
	if l.AtEnd() {
		return nil
	}
	return l.rows[l.row]
}

func (l *ListDataSource) ColumnCount() int { return len(l.current()) }

func (l *ListDataSource) Column(i int) string {
	return columnAt(l.current(), i, l.AtEnd())
}

func (l *ListDataSource) RowKind() veo.RowKind {
	if l.AtEnd() {
		return veo.RowAtEnd
	}
	cols := l.current()
	if len(cols) == 0 {
		return veo.RowUnknown
	}
	switch cols[0] {
	case "f", "r", "d", "e", "s":
		return veo.RowKindFromFlag(cols[0])
	default:
		return veo.RowUnknown
	}
}

func (l *ListDataSource) AdvanceRow() veo.RowKind {
	if !l.AtEnd() {
		l.row++
	}
	return l.RowKind()
}

func (l *ListDataSource) AtEnd() bool { return l.row >= len(l.rows) }
