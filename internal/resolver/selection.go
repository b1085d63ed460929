// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package resolver implements the Content Resolver (spec §4.2): a
// process-wide registry of per-authority providers plus bound-parameter
// selection and observer-coalescing facilities used by every persistence
// access in the core.
//
// The original kernel built selections via printf-style format strings
// (design note in spec §9: "Printf-style selection strings ... replaced by
// a typed selection builder with bound parameters; no SQL injection
// surface"). Selection below is that builder: every predicate carries its
// value as a bound parameter, never interpolated into SQL text.
package resolver

import "strings"

type CmpOp string

const (
	OpEq CmpOp = "="
	OpNe CmpOp = "!="
	OpLt CmpOp = "<"
	OpLe CmpOp = "<="
	OpGt CmpOp = ">"
	OpGe CmpOp = ">="
)

type Predicate struct {
	Column string
	Op     CmpOp
	Value  any
}

// Selection is an AND-conjunction of bound-parameter predicates.
type Selection struct {
	Predicates []Predicate
}

func Where(column string, op CmpOp, value any) Selection {
	return Selection{Predicates: []Predicate{{column, op, value}}}
}

func (s Selection) And(column string, op CmpOp, value any) Selection {
	s.Predicates = append(s.Predicates, Predicate{column, op, value})
	return s
}

// SQL renders the selection as a `?`-parameterized WHERE clause (sqlx
// positional binding) plus its argument list, in predicate order.
func (s Selection) SQL() (string, []any) {
	if len(s.Predicates) == 0 {
		return "", nil
	}
	clauses := make([]string, len(s.Predicates))
	args := make([]any, len(s.Predicates))
	for i, p := range s.Predicates {
		clauses[i] = p.Column + " " + string(p.Op) + " ?"
		args[i] = p.Value
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
