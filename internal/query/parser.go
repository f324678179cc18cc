package query

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
)

/*
This is a parser for the filter language used by the review queue and the task
list:

Query       := Expr
Expr        := OrExpr ( "OR" OrExpr )*
OrExpr      := Condition ( "AND" Condition )*
Condition   := ["NOT"] Filter | ["NOT"] "(" Expr ")"
Filter      := Field Op Value
Field       := "type" | "status" | "project" | "priority" | "annotator"
Op          := "CONTAINS" | "<" | ">" | "="
Value       := <string> | <int>

*/

var (
	ErrUnknownField = errors.New("unknown filter field")
	ErrInvalidOp    = errors.New("invalid operator for field")
	ErrValueType    = errors.New("value has the wrong type for field")
)

type fieldKind int

const (
	stringField fieldKind = iota
	intField
)

var fields = map[string]fieldKind{
	"type":      stringField,
	"status":    stringField,
	"project":   stringField,
	"priority":  intField,
	"annotator": stringField,
}

var (
	parser = participle.MustBuild[QueryExpr](
		participle.Unquote("String"),
		participle.Union[Value](StringValue{}, IntValue{}),
	)
)

func Parse(query string) (Filter, error) {
	q, err := parser.ParseString("", query)
	if err != nil {
		return nil, fmt.Errorf("error parsing query '%s': %w", query, err)
	}

	filter, err := q.ToFilter()
	if err != nil {
		return nil, fmt.Errorf("error converting query '%s' to filter: %w", query, err)
	}

	return filter, nil
}

type QueryExpr struct {
	Expr *Expr `@@`
}

func (q *QueryExpr) ToFilter() (Filter, error) {
	return q.Expr.ToFilter()
}

func (q *QueryExpr) String() string {
	return q.Expr.String()
}

type Expr struct {
	Ors []*OrExpr `@@ ( "OR" @@ )*`
}

func (e *Expr) ToFilter() (Filter, error) {
	if len(e.Ors) == 0 {
		return nil, fmt.Errorf("empty OR expression")
	}

	if len(e.Ors) == 1 {
		return e.Ors[0].ToFilter()
	}

	filters := make([]Filter, 0, len(e.Ors))
	for _, cond := range e.Ors {
		f, err := cond.ToFilter()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return &OrFilter{filters: filters}, nil
}

func (e *Expr) String() string {
	if len(e.Ors) == 1 {
		return e.Ors[0].String()
	}

	out := ""
	for i, cond := range e.Ors {
		if i > 0 {
			out += " OR "
		}
		out += fmt.Sprintf("(%s)", cond.String())
	}
	return out
}

type OrExpr struct {
	Ands []*Condition `@@ ( "AND" @@ )*`
}

func (o *OrExpr) ToFilter() (Filter, error) {
	if len(o.Ands) == 0 {
		return nil, fmt.Errorf("empty AND expression")
	}

	if len(o.Ands) == 1 {
		return o.Ands[0].ToFilter()
	}

	filters := make([]Filter, 0, len(o.Ands))
	for _, cond := range o.Ands {
		f, err := cond.ToFilter()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return &AndFilter{filters: filters}, nil
}

func (o *OrExpr) String() string {
	if len(o.Ands) == 1 {
		return o.Ands[0].String()
	}

	out := ""
	for i, cond := range o.Ands {
		if i > 0 {
			out += " AND "
		}
		out += fmt.Sprintf("(%s)", cond.String())
	}
	return out
}

type Condition struct {
	Not     bool        `@"NOT"?`
	Filter  *FilterExpr `( @@`
	SubExpr *Expr       `| "(" @@ ")" )`
}

func (c *Condition) ToFilter() (Filter, error) {
	var filter Filter
	var err error
	if c.Filter != nil {
		filter, err = c.Filter.ToFilter()
	} else if c.SubExpr != nil {
		filter, err = c.SubExpr.ToFilter()
	} else {
		err = fmt.Errorf("empty condition")
	}

	if err != nil {
		return nil, err
	}

	if c.Not {
		filter = &NotFilter{filter: filter}
	}

	return filter, nil
}

func (c *Condition) String() string {
	var out string
	if c.SubExpr != nil {
		out = c.SubExpr.String()
	} else {
		out = c.Filter.String()
	}
	if c.Not {
		return fmt.Sprintf("NOT (%s)", out)
	}
	return out
}

type FilterExpr struct {
	Field string `@Ident`
	Op    string `@("CONTAINS" | "<" | ">" | "=" )`
	Value Value  `@@`
}

func (f *FilterExpr) ToFilter() (Filter, error) {
	kind, ok := fields[f.Field]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownField, f.Field)
	}

	if kind == intField {
		i, ok := f.Value.(IntValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires an int value", ErrValueType, f.Field)
		}

		switch f.Op {
		case "<":
			return &IntLtFilter{field: f.Field, value: i.Value}, nil
		case ">":
			return &IntGtFilter{field: f.Field, value: i.Value}, nil
		case "=":
			return &IntEqFilter{field: f.Field, value: i.Value}, nil
		default:
			return nil, fmt.Errorf("%w: %s cannot be used with %s", ErrInvalidOp, f.Op, f.Field)
		}
	}

	s, ok := f.Value.(StringValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires a string value", ErrValueType, f.Field)
	}

	switch f.Op {
	case "CONTAINS":
		return &SubstringFilter{field: f.Field, substr: s.Value}, nil
	case "<":
		return &StringLtFilter{field: f.Field, value: s.Value}, nil
	case ">":
		return &StringGtFilter{field: f.Field, value: s.Value}, nil
	case "=":
		return &StringEqFilter{field: f.Field, value: s.Value}, nil
	default:
		return nil, fmt.Errorf("%w: %s cannot be used with %s", ErrInvalidOp, f.Op, f.Field)
	}
}

func (f *FilterExpr) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

type Value interface{ value() }

type StringValue struct {
	Value string `@String`
}

func (s StringValue) value() {}

func (s StringValue) String() string {
	return fmt.Sprintf("%q", s.Value)
}

type IntValue struct {
	Value int `@Int`
}

func (i IntValue) value() {}

func (i IntValue) String() string {
	return fmt.Sprintf("%d", i.Value)
}
