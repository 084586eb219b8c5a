package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

// fakeRows replays fixed rows through the pgx.Rows interface.
type fakeRows struct {
	values [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	sql  string
	args []any
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestQueryDataSource(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("AEST", 10*60*60))
	rows := &fakeRows{values: [][]any{
		{"r", "veo1.veo", int64(42), created, nil},
		{"d", []byte("bytes")},
		{"unknown flag"},
		{"r", "never read"},
	}}
	q := &fakeQuerier{rows: rows}

	ds, err := NewQueryDataSource(context.Background(), q, "select * from records where batch = $1", 7)
	if err != nil {
		t.Fatalf("NewQueryDataSource() error = %v", err)
	}
	if len(q.args) != 1 || q.args[0] != 7 {
		t.Errorf("query args = %v", q.args)
	}

	if ds.RowKind() != veo.RowRecord {
		t.Fatalf("RowKind() = %v, want record", ds.RowKind())
	}
	wantCols := []string{"r", "veo1.veo", "42", "2024-03-01T09:30:00+10:00", ""}
	for i, want := range wantCols {
		if got := ds.Column(i + 1); got != want {
			t.Errorf("Column(%d) = %q, want %q", i+1, got, want)
		}
	}

	if ds.AdvanceRow() != veo.RowDocument || ds.Column(2) != "bytes" {
		t.Errorf("second row: kind %v, column 2 %q", ds.RowKind(), ds.Column(2))
	}
	if ds.AdvanceRow() != veo.RowAtEnd || !ds.AtEnd() {
		t.Error("unknown flag should end the rows")
	}
	if !rows.closed {
		t.Error("rows should be closed at end")
	}
	if err := ds.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestQueryDataSource_Errors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		q := &fakeQuerier{err: errors.New("connection refused")}
		_, err := NewQueryDataSource(context.Background(), q, "select 1")
		if veo.CodeOf(err) != veo.ErrCodeIO {
			t.Errorf("error = %v, want io", err)
		}
	})

	t.Run("rows error", func(t *testing.T) {
		q := &fakeQuerier{rows: &fakeRows{err: errors.New("canceled")}}
		_, err := NewQueryDataSource(context.Background(), q, "select 1")
		if veo.CodeOf(err) != veo.ErrCodeIO {
			t.Errorf("error = %v, want io", err)
		}
	})

	t.Run("no rows", func(t *testing.T) {
		q := &fakeQuerier{rows: &fakeRows{}}
		ds, err := NewQueryDataSource(context.Background(), q, "select 1")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !ds.AtEnd() {
			t.Error("empty result should be at end")
		}
	})
}
