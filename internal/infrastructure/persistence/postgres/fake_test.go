package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// call is one statement seen by fakeDB.
type call struct {
	sql  string
	args []any
	inTx bool
}

// fakeDB replays scripted results in order: tags for Exec, result sets
// for Query and QueryRow.
type fakeDB struct {
	calls []call

	tags    []string
	results [][][]any
	errs    map[string]error // first statement containing the key fails

	inTx      bool
	txs       int
	rollbacks int
}

var _ DB = (*fakeDB)(nil)

func (f *fakeDB) record(sql string, args []any) error {
	f.calls = append(f.calls, call{sql: sql, args: args, inTx: f.inTx})
	for key, err := range f.errs {
		if strings.Contains(sql, key) {
			delete(f.errs, key)
			return err
		}
	}
	return nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := f.record(sql, args); err != nil {
		return pgconn.CommandTag{}, err
	}
	tag := "OK 1"
	if len(f.tags) > 0 {
		tag, f.tags = f.tags[0], f.tags[1:]
	}
	return pgconn.NewCommandTag(tag), nil
}

func (f *fakeDB) next() [][]any {
	if len(f.results) == 0 {
		return nil
	}
	rows := f.results[0]
	f.results = f.results[1:]
	return rows
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if err := f.record(sql, args); err != nil {
		return nil, err
	}
	return &fakeRows{rows: f.next(), pos: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if err := f.record(sql, args); err != nil {
		return fakeRow{err: err}
	}
	rows := f.next()
	if len(rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: rows[0]}
}

func (f *fakeDB) InTx(_ context.Context, fn func(Querier) error) error {
	f.txs++
	f.inTx = true
	defer func() { f.inTx = false }()
	if err := fn(f); err != nil {
		f.rollbacks++
		return err
	}
	return nil
}

// sqls returns the statements whose text contains substr.
func (f *fakeDB) sqls(substr string) []call {
	var out []call
	for _, c := range f.calls {
		if strings.Contains(c.sql, substr) {
			out = append(out, c)
		}
	}
	return out
}

func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("fake: %d values for %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		vv := reflect.ValueOf(values[i])
		if !vv.Type().AssignableTo(dv.Type()) {
			return fmt.Errorf("fake: column %d: cannot scan %s into %s", i, vv.Type(), dv.Type())
		}
		dv.Set(vv)
	}
	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if err := scanInto(r.rows[r.pos], dest); err != nil {
		r.err = err
		return err
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos], nil
}
