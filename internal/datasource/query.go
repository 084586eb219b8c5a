package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QueryDataSource walks the rows returned by a SQL query. Every value is rendered as
// text; the kind of a row is taken from its first column as for a TableDataSource.
type QueryDataSource struct {
	rows    pgx.Rows
	columns []string
	kind    veo.RowKind
	atEnd   bool
	err     error
}

var _ veo.DataSource = (*QueryDataSource)(nil)

// NewQueryDataSource runs sql and positions the data source on the first row.
// The caller must Close it to release the connection.
func NewQueryDataSource(ctx context.Context, q Querier, sql string, args ...any) (*QueryDataSource, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, veo.WrapIOError(err, "datasource.NewQueryDataSource", "query failed")
	}
	d := &QueryDataSource{rows: rows}
	d.readRow()
	if d.err != nil {
		rows.Close()
		return nil, d.err
	}
	return d, nil
}

func (d *QueryDataSource) readRow() veo.RowKind {
	if d.atEnd {
		return veo.RowAtEnd
	}
	if !d.rows.Next() {
		if err := d.rows.Err(); err != nil {
			d.err = veo.WrapIOError(err, "datasource.QueryDataSource", "failed reading row")
		}
		return d.end()
	}

	values, err := d.rows.Values()
	if err != nil {
		d.err = veo.WrapIOError(err, "datasource.QueryDataSource", "failed decoding row")
		return d.end()
	}
	d.columns = make([]string, len(values))
	for i, v := range values {
		d.columns[i] = formatValue(v)
	}

	if len(d.columns) == 0 {
		return d.end()
	}
	d.kind = veo.RowKindFromFlag(strings.ToLower(strings.TrimSpace(d.columns[0])))
	if d.kind == veo.RowUnknown {
		return d.end()
	}
	return d.kind
}

func (d *QueryDataSource) end() veo.RowKind {
	d.atEnd = true
	d.kind = veo.RowAtEnd
	d.columns = nil
	d.rows.Close()
	return veo.RowAtEnd
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return veo.FormatDateTime(v)
	default:
		return fmt.Sprint(v)
	}
}

func (d *QueryDataSource) ColumnCount() int { return len(d.columns) }

func (d *QueryDataSource) Column(i int) string {
	return columnAt(d.columns, i, d.atEnd)
}

func (d *QueryDataSource) RowKind() veo.RowKind { return d.kind }

func (d *QueryDataSource) AdvanceRow() veo.RowKind { return d.readRow() }

func (d *QueryDataSource) AtEnd() bool { return d.atEnd }

// Err returns the error that ended the rows early, if any.
func (d *QueryDataSource) Err() error { return d.err }

func (d *QueryDataSource) Close() error {
	d.rows.Close()
	return d.rows.Err()
}
