package datasource

import "github.com/information-sharing-networks/veogen/internal/veo"

// ArrayDataSource is a data source holding exactly one row, reported as a record row.
type ArrayDataSource struct {
	columns []string
	atEnd   bool
}

var _ veo.DataSource = (*ArrayDataSource)(nil)

func NewArrayDataSource(columns []string) *ArrayDataSource {
	return &ArrayDataSource{columns: columns}
}

func (a *ArrayDataSource) ColumnCount() int {
	if a.atEnd {
		return 0
	}
	return len(a.columns)
}

func (a *ArrayDataSource) Column(i int) string {
	return columnAt(a.columns, i, a.atEnd)
}

func (a *ArrayDataSource) RowKind() veo.RowKind {
	if a.atEnd {
		return veo.RowAtEnd
	}
	return veo.RowRecord
}

func (a *ArrayDataSource) AdvanceRow() veo.RowKind {
	a.atEnd = true
	return veo.RowAtEnd
}

func (a *ArrayDataSource) AtEnd() bool { return a.atEnd }

// columnAt returns columns[i-1], or "" when i is out of range or the source is exhausted.
func columnAt(columns []string, i int, atEnd bool) string {
	if atEnd || i < 1 || i > len(columns) {
		return ""
	}
	return columns[i-1]
}
