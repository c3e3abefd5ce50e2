// Package querydef reads query definitions written in YAML and builds them
// into sqlquery objects.
//
// A definition names its kind and fills the clause slots of that kind:
//
//	name: active-users
//	kind: select
//	columns: id, name
//	from: users u
//	where:
//	  all:
//	    - eq: {key: u.active, value: 1}
//	    - like: {expr: u.name, pattern: "a%"}
//	order_by:
//	  - {column: u.name, asc: true}
//	skip: 0
//	take: 20
//
// Conditions are trees: each node sets exactly one of raw, eq, compare,
// like, contains, in, not_in, between, exists, all, any or not.
package querydef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Kinds of query definitions.
const (
	KindSelect    = "select"
	KindInsert    = "insert"
	KindUpdate    = "update"
	KindDelete    = "delete"
	KindProcedure = "procedure"
)

// Document is one query definition.
type Document struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Statement is a precomputed select, or the procedure name.
	Statement string `yaml:"statement,omitempty"`

	Columns   string     `yaml:"columns,omitempty"`
	Distinct  bool       `yaml:"distinct,omitempty"`
	From      string     `yaml:"from,omitempty"`
	Joins     []Join     `yaml:"joins,omitempty"`
	LeftJoins []Join     `yaml:"left_joins,omitempty"`
	Where     *Condition `yaml:"where,omitempty"`
	GroupBy   string     `yaml:"group_by,omitempty"`
	Having    *Condition `yaml:"having,omitempty"`
	OrderBy   []Order    `yaml:"order_by,omitempty"`
	Skip      int        `yaml:"skip,omitempty"`
	Take      int        `yaml:"take,omitempty"`

	Into   string `yaml:"into,omitempty"`
	Values []any  `yaml:"values,omitempty"`

	Table string       `yaml:"table,omitempty"`
	Set   []Assignment `yaml:"set,omitempty"`

	Params []Param `yaml:"params,omitempty"`
}

// Join is one joined relation.
type Join struct {
	Table string     `yaml:"table"`
	On    *Condition `yaml:"on"`
}

// Order is one ORDER BY term.
type Order struct {
	Column string `yaml:"column"`
	Asc    bool   `yaml:"asc"`
}

// Assignment is one SET term of an update. Raw, when set, is used verbatim
// instead of Value.
type Assignment struct {
	Column string `yaml:"column"`
	Value  any    `yaml:"value"`
	Raw    string `yaml:"raw,omitempty"`
}

// Param declares a statement parameter.
type Param struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type,omitempty"`
	Direction string `yaml:"direction,omitempty"`
	Size      int    `yaml:"size,omitempty"`
	Value     any    `yaml:"value,omitempty"`
}

// Condition is one node of a filter tree.
type Condition struct {
	Raw      string      `yaml:"raw,omitempty"`
	Eq       *Compare    `yaml:"eq,omitempty"`
	Compare  *Compare    `yaml:"compare,omitempty"`
	Like     *Like       `yaml:"like,omitempty"`
	Contains *Contains   `yaml:"contains,omitempty"`
	In       *Members    `yaml:"in,omitempty"`
	NotIn    *Members    `yaml:"not_in,omitempty"`
	Between  *Between    `yaml:"between,omitempty"`
	Exists   string      `yaml:"exists,omitempty"`
	All      []Condition `yaml:"all,omitempty"`
	Any      []Condition `yaml:"any,omitempty"`
	Not      *Condition  `yaml:"not,omitempty"`
}

// Compare is a key/operator/value comparison. Op defaults to equality.
type Compare struct {
	Key   string `yaml:"key"`
	Op    string `yaml:"op,omitempty"`
	Value any    `yaml:"value"`
}

type Like struct {
	Expr          string `yaml:"expr"`
	Pattern       string `yaml:"pattern"`
	Parameterized bool   `yaml:"parameterized,omitempty"`
}

type Contains struct {
	Columns []string `yaml:"columns,omitempty"`
	Term    string   `yaml:"term"`
}

type Members struct {
	Expr   string `yaml:"expr"`
	Values []any  `yaml:"values"`
}

type Between struct {
	Expr string `yaml:"expr"`
	Low  any    `yaml:"low"`
	High any    `yaml:"high"`
}

// Load reads a definition file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query definition: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a single definition. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty query definition")
		}
		return nil, fmt.Errorf("invalid query definition: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	switch d.Kind {
	case KindSelect, KindInsert, KindUpdate, KindDelete:
	case KindProcedure:
		if d.Statement == "" {
			return errors.New("procedure definition requires statement")
		}
	case "":
		return errors.New("query definition has no kind")
	default:
		return fmt.Errorf("unknown query kind %q", d.Kind)
	}

	for i, j := range d.Joins {
		if err := j.On.validate(fmt.Sprintf("joins[%d].on", i)); err != nil {
			return err
		}
	}
	for i, j := range d.LeftJoins {
		if err := j.On.validate(fmt.Sprintf("left_joins[%d].on", i)); err != nil {
			return err
		}
	}
	if d.Where != nil {
		if err := d.Where.validate("where"); err != nil {
			return err
		}
	}
	if d.Having != nil {
		if err := d.Having.validate("having"); err != nil {
			return err
		}
	}
	return nil
}

// validate checks that each node sets exactly one form.
func (c *Condition) validate(path string) error {
	if c == nil {
		return fmt.Errorf("%s: missing condition", path)
	}

	set := 0
	for _, on := range []bool{
		c.Raw != "", c.Eq != nil, c.Compare != nil, c.Like != nil,
		c.Contains != nil, c.In != nil, c.NotIn != nil, c.Between != nil,
		c.Exists != "", c.All != nil, c.Any != nil, c.Not != nil,
	} {
		if on {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%s: condition must set exactly one form, found %d", path, set)
	}

	for i := range c.All {
		if err := c.All[i].validate(fmt.Sprintf("%s.all[%d]", path, i)); err != nil {
			return err
		}
	}
	for i := range c.Any {
		if err := c.Any[i].validate(fmt.Sprintf("%s.any[%d]", path, i)); err != nil {
			return err
		}
	}
	if c.Not != nil {
		return c.Not.validate(path + ".not")
	}
	return nil
}
