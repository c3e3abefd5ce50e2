// Package typeinfo builds and caches the field registry of record types.
//
// A registry maps column names to struct fields. It is computed once per
// type and reused, so row mapping and parameter reflection never walk a
// struct's fields per row.
//
// Column names come from the optional `db:"name"` tag and default to the Go
// field name. `db:"-"` excludes a field. Embedded structs without a tag are
// flattened. Lookup is case-insensitive using Unicode case folding.
package typeinfo

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Field describes one mapped struct field.
type Field struct {
	Name      string       // Go field name
	Column    string       // column or parameter name
	Index     []int        // path for reflect.Value.FieldByIndex
	Type      reflect.Type // declared field type
	OmitEmpty bool
}

// Info is the registry of one struct type.
type Info struct {
	Type   reflect.Type
	Fields []Field

	byColumn map[string]int
}

var (
	mu    sync.RWMutex
	cache = make(map[reflect.Type]*Info)
)

// For returns the registry of T, which must be a struct or pointer to struct.
func For[T any]() (*Info, error) {
	return Of(reflect.TypeFor[T]())
}

// Of returns the registry of t, generating and caching it as required.
func Of(t reflect.Type) (*Info, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot reflect nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot reflect %s: not a struct", t)
	}

	mu.RLock()
	info, found := cache[t]
	mu.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(t)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cache[t] = info
	mu.Unlock()

	return info, nil
}

// Lookup returns the field mapped to column, ignoring case.
func (i *Info) Lookup(column string) (Field, bool) {
	idx, ok := i.Position(column)
	if !ok {
		return Field{}, false
	}
	return i.Fields[idx], true
}

// Position returns the index into Fields of the field mapped to column.
func (i *Info) Position(column string) (int, bool) {
	idx, ok := i.byColumn[Fold(column)]
	return idx, ok
}

// Fold returns the case-folded form of s used for column matching.
// A Caser is not safe for concurrent use, so each call builds its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func generate(t reflect.Type) (*Info, error) {
	fields, err := collect(t, nil)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Type:     t,
		byColumn: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		key := Fold(f.Column)
		if prev, dup := info.byColumn[key]; dup {
			// Shallower fields shadow embedded ones, like Go selectors.
			if len(info.Fields[prev].Index) <= len(f.Index) {
				continue
			}
			info.Fields[prev] = f
			continue
		}
		info.byColumn[key] = len(info.Fields)
		info.Fields = append(info.Fields, f)
	}

	return info, nil
}

func collect(t reflect.Type, prefix []int) ([]Field, error) {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, hasTag := sf.Tag.Lookup("db")
		if tag == "-" {
			continue
		}

		index := append(append([]int{}, prefix...), i)

		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			nested, err := collect(sf.Type, index)
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		column, omitEmpty, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		if column == "" {
			column = sf.Name
		}

		fields = append(fields, Field{
			Name:      sf.Name,
			Column:    column,
			Index:     index,
			Type:      sf.Type,
			OmitEmpty: omitEmpty,
		})
	}
	return fields, nil
}

// parseTag splits a db tag into its name and the omitempty option.
func parseTag(tag string) (string, bool, error) {
	options := strings.Split(tag, ",")

	var omitEmpty bool
	for _, opt := range options[1:] {
		if strings.ToLower(strings.TrimSpace(opt)) != "omitempty" {
			return "", false, fmt.Errorf("unexpected tag option %q", opt)
		}
		omitEmpty = true
	}

	return strings.TrimSpace(options[0]), omitEmpty, nil
}
