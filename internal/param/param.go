// Package param models named, typed, directional statement parameters.
//
// A Parameter is built by the caller, bound into a call with Bind, and for
// output directions refreshed with the post-execution value, so the caller
// reads results back through the same *Parameter.
//
//	total := param.Out("total", nil, param.Int)
//	sess.Execute(ctx, sqlquery.Raw("dbo.CountUsers"), session.AsProcedure(), session.WithParams(total))
//	fmt.Println(total.Value) // int64 returned by the procedure
//
// Binding converts each value to the Go representation of its DBType (see
// Coerce). Output-direction parameters bind through sql.Out with a nullable
// destination; the caller's input value is ignored for DirOut.
package param

import (
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"

	"github.com/roach88/sqlgate/internal/typeinfo"
)

// Direction is the data flow of a parameter relative to the statement.
type Direction int

const (
	DirIn Direction = iota
	DirOut
	DirInOut
)

func (d Direction) String() string {
	switch d {
	case DirOut:
		return "out"
	case DirInOut:
		return "inout"
	default:
		return "in"
	}
}

// ParseDirection resolves "in", "out" or "inout". The empty string is "in".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in", "input":
		return DirIn, nil
	case "out", "output":
		return DirOut, nil
	case "inout", "in_out", "inputoutput":
		return DirInOut, nil
	}
	return DirIn, fmt.Errorf("unknown parameter direction %q", s)
}

// Parameter is one named statement parameter.
//
// Size bounds character and binary input values (0 = unbounded).
type Parameter struct {
	Name      string
	Value     any
	Direction Direction
	Type      DBType
	Size      int

	dest any // output destination of the last Bind
}

// In creates an input parameter.
func In(name string, value any, t DBType) *Parameter {
	return &Parameter{Name: name, Value: value, Direction: DirIn, Type: t}
}

// Out creates an output parameter. value is ignored at bind time and
// replaced by Refresh.
func Out(name string, value any, t DBType) *Parameter {
	return &Parameter{Name: name, Value: value, Direction: DirOut, Type: t}
}

// InOut creates a parameter whose value is sent and then overwritten.
func InOut(name string, value any, t DBType) *Parameter {
	return &Parameter{Name: name, Value: value, Direction: DirInOut, Type: t}
}

// WithSize sets Size and returns p.
func (p *Parameter) WithSize(size int) *Parameter {
	p.Size = size
	return p
}

// BindName returns Name without any leading '@', as database/sql requires.
func (p *Parameter) BindName() string {
	return strings.TrimLeft(p.Name, "@")
}

// Bind converts p into a database/sql argument.
func (p *Parameter) Bind() (any, error) {
	name := p.BindName()
	if name == "" {
		return nil, fmt.Errorf("parameter has no name")
	}

	var in any
	if p.Direction != DirOut {
		v, err := Coerce(p.Value, p.Type, p.Size)
		if err != nil {
			return nil, fmt.Errorf("parameter %s (%s): %w", name, p.Type, err)
		}
		in = v
	}

	if p.Direction == DirIn {
		p.dest = nil
		return sql.Named(name, in), nil
	}

	p.dest = newDest(p.Type, in)
	return sql.Named(name, sql.Out{Dest: p.dest, In: p.Direction == DirInOut}), nil
}

// Refresh copies the engine-returned value into Value. It is a no-op for
// input parameters and before the first Bind.
func (p *Parameter) Refresh() {
	if p.dest == nil {
		return
	}
	p.Value = unwrap(p.dest, p.Type)
}

// Args binds every parameter in order.
func Args(params []*Parameter) ([]any, error) {
	args := make([]any, 0, len(params))
	for _, p := range params {
		arg, err := p.Bind()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// RefreshAll refreshes every output-direction parameter.
func RefreshAll(params []*Parameter) {
	for _, p := range params {
		p.Refresh()
	}
}

// FromHolder reflects a plain value holder into input parameters.
//
// Structs (or pointers to structs) contribute one parameter per exported
// field, named by its db tag or field name; omitempty fields holding a zero
// value are skipped. Maps with string keys contribute one parameter per key
// in sorted order. A nil holder yields no parameters.
func FromHolder(holder any) ([]*Parameter, error) {
	if holder == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(holder)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("holder map key must be a string, got %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)

		params := make([]*Parameter, 0, len(keys))
		for _, k := range keys {
			v := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			params = append(params, In(k, v.Interface(), Variant))
		}
		return params, nil

	case reflect.Struct:
		info, err := typeinfo.Of(rv.Type())
		if err != nil {
			return nil, err
		}
		params := make([]*Parameter, 0, len(info.Fields))
		for _, f := range info.Fields {
			fv := rv.FieldByIndex(f.Index)
			if f.OmitEmpty && fv.IsZero() {
				continue
			}
			params = append(params, In(f.Column, fv.Interface(), Variant))
		}
		return params, nil
	}

	return nil, fmt.Errorf("cannot derive parameters from %T", holder)
}

// newDest allocates a nullable output destination for t, seeded with in.
func newDest(t DBType, in any) any {
	switch t.class() {
	case classInt:
		d := &sql.NullInt64{}
		if v, ok := in.(int64); ok {
			d.Int64, d.Valid = v, true
		}
		return d
	case classBool:
		d := &sql.NullBool{}
		if v, ok := in.(bool); ok {
			d.Bool, d.Valid = v, true
		}
		return d
	case classFloat:
		d := &sql.NullFloat64{}
		if v, ok := in.(float64); ok {
			d.Float64, d.Valid = v, true
		}
		return d
	case classDecimal:
		d := &decimal.NullDecimal{}
		if v, ok := in.(decimal.Decimal); ok {
			d.Decimal, d.Valid = v, true
		}
		return d
	case classString:
		d := &sql.NullString{}
		if v, ok := in.(string); ok {
			d.String, d.Valid = v, true
		}
		return d
	case classTime:
		d := &sql.NullTime{}
		if v, ok := in.(time.Time); ok {
			d.Time, d.Valid = v, true
		}
		return d
	case classBytes:
		d := new([]byte)
		if v, ok := in.([]byte); ok {
			*d = v
		}
		return d
	default:
		d := new(any)
		*d = in
		return d
	}
}

// unwrap reads an output destination back into a plain value, nil for NULL.
func unwrap(dest any, t DBType) any {
	switch d := dest.(type) {
	case *sql.NullInt64:
		if d.Valid {
			return d.Int64
		}
	case *sql.NullBool:
		if d.Valid {
			return d.Bool
		}
	case *sql.NullFloat64:
		if d.Valid {
			return d.Float64
		}
	case *decimal.NullDecimal:
		if d.Valid {
			return d.Decimal
		}
	case *sql.NullString:
		if d.Valid {
			return d.String
		}
	case *sql.NullTime:
		if d.Valid {
			return d.Time
		}
	case *[]byte:
		if *d != nil {
			return *d
		}
	case *any:
		if t == UniqueIdentifier {
			return toGUID(*d)
		}
		return *d
	}
	return nil
}

// toGUID converts a driver-returned uniqueidentifier to uuid.UUID. SQL
// Server sends GUID bytes in mixed-endian order; mssql.UniqueIdentifier
// reorders them on Scan.
func toGUID(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return x
	case []byte:
		var g mssql.UniqueIdentifier
		if err := g.Scan(x); err == nil {
			return uuid.UUID(g)
		}
	case string:
		if u, err := uuid.Parse(x); err == nil {
			return u
		}
	}
	return v
}
