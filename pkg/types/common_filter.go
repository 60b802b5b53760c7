package types

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq       CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq    CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt       CommonFilterOperator = "lt"
	CommonFilterOperatorLte      CommonFilterOperator = "lte"
	CommonFilterOperatorGt       CommonFilterOperator = "gt"
	CommonFilterOperatorGte      CommonFilterOperator = "gte"
	CommonFilterOperatorContains CommonFilterOperator = "contains"
	CommonFilterOperatorRange    CommonFilterOperator = "range"
	CommonFilterOperatorIn       CommonFilterOperator = "in"
)

type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

// AllowedIn reports whether the filter targets one of the given columns.
func (f *CommonFilter) AllowedIn(fields []string) bool {
	for _, name := range fields {
		if name == f.Field {
			return true
		}
	}
	return false
}

// Build constructs a GORM expression. Filters without values build nothing.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Values) == 0 {
		return
	}

	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		// Handle JSON operator fields (containing -> or ->> operators)
		if strings.Contains(f.Field, "->") {
			// Use raw SQL expression for JSON operators
			clause.Expr{SQL: fmt.Sprintf("%s = ?", f.Field), Vars: []interface{}{value}}.Build(builder)
		} else {
			// Use standard equality for regular fields
			clause.Eq{Column: f.Field, Value: value}.Build(builder)
		}
	case CommonFilterOperatorNotEq:
		clause.NotConditions{Exprs: []clause.Expression{clause.Eq{Column: f.Field, Value: value}}}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorRange:
		if len(f.Values) < 2 {
			return
		}

		clause.And(clause.Gte{Column: f.Field, Value: f.Values[0]}, clause.Lte{Column: f.Field, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: f.Field, Values: f.Values}.Build(builder)
	case CommonFilterOperatorContains:
		clause.Like{Column: f.Field, Value: "%" + fmt.Sprint(value) + "%"}.Build(builder)
	default:
		return
	}
}

// Filters joins its members with AND.
type Filters []*CommonFilter

func (fs Filters) Build(builder clause.Builder) {
	exprs := make([]clause.Expression, 0, len(fs))
	for _, f := range fs {
		if f != nil && len(f.Values) > 0 {
			exprs = append(exprs, f)
		}
	}
	if len(exprs) == 0 {
		builder.WriteString("1=1")
		return
	}
	clause.And(exprs...).Build(builder)
}

// AllowedIn reports whether every filter targets one of the given columns.
func (fs Filters) AllowedIn(fields []string) bool {
	for _, f := range fs {
		if f != nil && !f.AllowedIn(fields) {
			return false
		}
	}
	return true
}

// ListRequest is the paging and filtering envelope of admin listings.
type ListRequest struct {
	Filters   Filters `json:"filters"`
	From      int     `json:"from"`
	Size      int     `json:"size"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

// Normalize clamps paging and falls back to sortDefault when SortBy is not allowed.
func (r *ListRequest) Normalize(allowed []string, sortDefault string) {
	if r.Size <= 0 {
		r.Size = 10
	}
	if r.Size > 200 {
		r.Size = 200
	}
	if r.From < 0 {
		r.From = 0
	}
	if r.SortBy == "" || !(&CommonFilter{Field: r.SortBy}).AllowedIn(allowed) {
		r.SortBy = sortDefault
	}
}

// Desc reports whether results are ordered newest first.
func (r *ListRequest) Desc() bool {
	return r.SortOrder != "asc"
}
