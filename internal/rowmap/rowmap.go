// Package rowmap materializes result rows into record types by column name.
//
// A Registry is built once per record type (see typeinfo), a Plan once per
// result set, and each row is then scanned without further introspection.
//
// Mapping is lenient: a field whose column is missing from the result, or
// whose value is NULL, keeps its zero value. Result columns that match no
// field are read and discarded.
package rowmap

import (
	"fmt"
	"reflect"

	"github.com/roach88/sqlgate/internal/typeinfo"
)

// Scanner reads the current row into dest. *sql.Rows and *sql.Row satisfy it.
type Scanner interface {
	Scan(dest ...any) error
}

// Registry is the column-to-field table of record type T. T is a struct or
// a pointer to a struct; for pointer types a new value is allocated per row.
type Registry[T any] struct {
	info *typeinfo.Info
	ptr  bool
}

// For returns the registry of T.
func For[T any]() (*Registry[T], error) {
	t := reflect.TypeFor[T]()
	info, err := typeinfo.Of(t)
	if err != nil {
		return nil, fmt.Errorf("rowmap: %w", err)
	}
	return &Registry[T]{info: info, ptr: t.Kind() == reflect.Pointer}, nil
}

// Plan binds the registry to the columns of one result set.
type Plan[T any] struct {
	reg     *Registry[T]
	columns []string
	fields  []int // index into info.Fields, -1 when unmatched
}

// Plan resolves columns against the registry, ignoring case.
func (r *Registry[T]) Plan(columns []string) *Plan[T] {
	p := &Plan[T]{
		reg:     r,
		columns: columns,
		fields:  make([]int, len(columns)),
	}
	for i, col := range columns {
		p.fields[i] = -1
		if pos, ok := r.info.Position(col); ok {
			p.fields[i] = pos
		}
	}
	return p
}

// Matched returns the result columns that map to a field.
func (p *Plan[T]) Matched() []string {
	var out []string
	for i, fi := range p.fields {
		if fi >= 0 {
			out = append(out, p.columns[i])
		}
	}
	return out
}

// Scan reads the current row of src into dest.
func (p *Plan[T]) Scan(src Scanner, dest *T) error {
	rv := reflect.ValueOf(dest).Elem()
	if p.reg.ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}

	targets := make([]any, len(p.fields))
	var proxies []proxy
	for i, fi := range p.fields {
		if fi < 0 {
			targets[i] = new(any)
			continue
		}

		f := p.reg.info.Fields[fi]
		fv := rv.FieldByIndex(f.Index)
		if f.Type.Kind() == reflect.Pointer {
			targets[i] = fv.Addr().Interface()
			continue
		}

		// Scan through **T so NULL leaves the field untouched.
		pp := reflect.New(reflect.PointerTo(f.Type))
		targets[i] = pp.Interface()
		proxies = append(proxies, proxy{field: fv, ptr: pp.Elem()})
	}

	if err := src.Scan(targets...); err != nil {
		return err
	}

	for _, px := range proxies {
		if !px.ptr.IsNil() {
			px.field.Set(px.ptr.Elem())
		}
	}
	return nil
}

// Row is a convenience that allocates a fresh T and scans into it.
func (p *Plan[T]) Row(src Scanner) (T, error) {
	var out T
	err := p.Scan(src, &out)
	return out, err
}

type proxy struct {
	field reflect.Value
	ptr   reflect.Value
}
