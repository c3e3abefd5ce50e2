package querydef

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/sqlgate/internal/param"
	"github.com/roach88/sqlgate/internal/sqlexpr"
	"github.com/roach88/sqlgate/internal/sqlquery"
	"github.com/roach88/sqlgate/internal/validation"
)

// Build converts the definition to a query object and checks its mandatory
// fields.
func (d *Document) Build() (sqlquery.Query, error) {
	q, err := d.Query()
	if err != nil {
		return nil, err
	}
	if missing := validation.Missing(q); len(missing) > 0 {
		return nil, fmt.Errorf("%s query %q is missing %s", d.Kind, d.Name, strings.Join(missing, ", "))
	}
	return q, nil
}

// Query converts the definition without checking mandatory fields.
func (d *Document) Query() (sqlquery.Query, error) {
	var q sqlquery.Query

	switch d.Kind {
	case KindSelect:
		q = d.buildSelect()
	case KindInsert:
		ins := &sqlquery.Insert{Into: d.Into}
		if d.Columns != "" {
			ins.Columns = sqlexpr.Str(d.Columns)
		}
		if len(d.Values) > 0 {
			ins.Values = literals(d.Values)
		}
		q = ins
	case KindUpdate:
		upd := &sqlquery.Update{Table: d.Table, Where: d.Where.expression()}
		for _, a := range d.Set {
			value := sqlexpr.Str(sqlexpr.Literal(a.Value))
			if a.Raw != "" {
				value = sqlexpr.Str(a.Raw)
			}
			upd.Assign(a.Column, value)
		}
		q = upd
	case KindDelete:
		q = &sqlquery.Delete{From: d.From, Where: d.Where.expression()}
	case KindProcedure:
		q = sqlquery.Raw(strings.TrimSpace(d.Statement))
	default:
		return nil, fmt.Errorf("unknown query kind %q", d.Kind)
	}
	return q, nil
}

// Procedure reports whether the definition calls a stored procedure.
func (d *Document) Procedure() bool {
	return d.Kind == KindProcedure
}

// Parameters converts the declared params.
func (d *Document) Parameters() ([]*param.Parameter, error) {
	params := make([]*param.Parameter, 0, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter without name in %q", d.Name)
		}
		typ := param.Variant
		if p.Type != "" {
			t, err := param.ParseDBType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			typ = t
		}
		dir, err := param.ParseDirection(p.Direction)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		params = append(params, (&param.Parameter{
			Name:      p.Name,
			Value:     p.Value,
			Direction: dir,
			Type:      typ,
		}).WithSize(p.Size))
	}
	return params, nil
}

func (d *Document) buildSelect() *sqlquery.Select {
	sel := &sqlquery.Select{
		From:      d.From,
		Where:     d.Where.expression(),
		Having:    d.Having.expression(),
		Skip:      d.Skip,
		Take:      d.Take,
		Statement: strings.TrimSpace(d.Statement),
	}
	if d.Columns != "" {
		sel.Columns = &sqlexpr.String{Expr: d.Columns, Distinct: d.Distinct}
	}
	if d.GroupBy != "" {
		sel.GroupBy = sqlexpr.Str(d.GroupBy)
	}
	for _, j := range d.Joins {
		sel.Joins = append(sel.Joins, sqlquery.Join{Table: j.Table, On: j.On.expression()})
	}
	for _, j := range d.LeftJoins {
		sel.LeftJoins = append(sel.LeftJoins, sqlquery.Join{Table: j.Table, On: j.On.expression()})
	}
	if len(d.OrderBy) > 0 {
		terms := sqlexpr.NewArray[*sqlexpr.OrderBy](false)
		for _, o := range d.OrderBy {
			terms.Append(&sqlexpr.OrderBy{Column: o.Column, Asc: o.Asc})
		}
		sel.OrderBy = terms
	}
	return sel
}

// expression converts the tree. A nil condition yields a nil expression so
// the clause is omitted.
func (c *Condition) expression() sqlexpr.Expression {
	if c == nil {
		return nil
	}

	switch {
	case c.Raw != "":
		return sqlexpr.Str(c.Raw)

	case c.Eq != nil:
		return sqlexpr.NewEqual(c.Eq.Key, c.Eq.Value)

	case c.Compare != nil:
		op, ok := sqlexpr.ParseComparator(c.Compare.Op)
		if !ok && c.Compare.Op != "" {
			slog.Warn("unknown comparator, using equality", "key", c.Compare.Key, "op", c.Compare.Op)
		}
		return sqlexpr.NewComparison(c.Compare.Key, c.Compare.Value, op)

	case c.Like != nil:
		return &sqlexpr.Like{Expr: c.Like.Expr, Pattern: c.Like.Pattern, Parameterized: c.Like.Parameterized}

	case c.Contains != nil:
		return &sqlexpr.FullText{Columns: c.Contains.Columns, Term: c.Contains.Term}

	case c.In != nil:
		return sqlexpr.Of(sqlexpr.Str(c.In.Expr), false).In(literals(c.In.Values))

	case c.NotIn != nil:
		return sqlexpr.Of(sqlexpr.Str(c.NotIn.Expr), false).NotIn(literals(c.NotIn.Values))

	case c.Between != nil:
		bounds := sqlexpr.Literal(c.Between.Low) + " AND " + sqlexpr.Literal(c.Between.High)
		return sqlexpr.Of(sqlexpr.Str(c.Between.Expr), false).Between(sqlexpr.Str(bounds))

	case c.Exists != "":
		return sqlexpr.NewLogical(false).Exists(sqlexpr.Str(c.Exists))

	case c.All != nil:
		l := sqlexpr.NewLogical(true)
		for i := range c.All {
			l = l.And(c.All[i].expression())
		}
		return l

	case c.Any != nil:
		l := sqlexpr.NewLogical(true)
		for i := range c.Any {
			l = l.Or(c.Any[i].expression())
		}
		return l

	case c.Not != nil:
		return sqlexpr.Of(c.Not.expression(), true).Not()
	}
	return nil
}

// literals renders each value with its own quoting.
func literals(values []any) *sqlexpr.Array[*sqlexpr.String] {
	items := make([]*sqlexpr.String, 0, len(values))
	for _, v := range values {
		items = append(items, sqlexpr.Str(sqlexpr.Literal(v)))
	}
	return sqlexpr.NewArray(false, items...)
}
