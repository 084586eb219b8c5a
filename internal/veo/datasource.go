package veo

// RowKind classifies the current row of a DataSource.
// By convention the kind is signalled by the first character of the first column.
type RowKind int

const (
	RowAtEnd RowKind = iota - 1
	RowUnknown
	RowFile
	RowRecord
	RowDocument
	RowEncoding
	RowSimpleRecord
)

func (k RowKind) String() string {
	switch k {
	case RowAtEnd:
		return "at-end"
	case RowFile:
		return "file"
	case RowRecord:
		return "record"
	case RowDocument:
		return "document"
	case RowEncoding:
		return "encoding"
	case RowSimpleRecord:
		return "simple-record"
	default:
		return "unknown"
	}
}

// RowKindFromFlag maps the conventional row flag to a RowKind.
// Only the first byte of flag is examined; "" and unrecognised flags map to RowUnknown.
func RowKindFromFlag(flag string) RowKind {
	if flag == "" {
		return RowUnknown
	}
	switch flag[0] {
	case 'f', 'F':
		return RowFile
	case 'r', 'R':
		return RowRecord
	case 'd', 'D':
		return RowDocument
	case 'e', 'E':
		return RowEncoding
	case 's', 'S':
		return RowSimpleRecord
	default:
		return RowUnknown
	}
}

// DataSource is a cursor over rows of string columns. Columns are numbered from 1.
type DataSource interface {
	// ColumnCount returns the number of columns in the current row.
	ColumnCount() int

	// Column returns column i (1-based) of the current row, or "" when i is out of range.
	Column(i int) string

	// RowKind returns the kind of the current row.
	RowKind() RowKind

	// AdvanceRow moves to the next row and returns its kind (RowAtEnd when exhausted).
	AdvanceRow() RowKind

	// AtEnd reports whether the data source is exhausted.
	AtEnd() bool
}
