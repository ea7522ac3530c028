// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package response classifies agent answers as tables or free text and
// renders them for the terminal and for CSV export.
package response

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/sirupsen/logrus"

	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/logging"
)

// ResultKind tags an interpreted answer.
type ResultKind int

const (
	Freeform ResultKind = iota
	Tabular
)

func (k ResultKind) String() string {
	if k == Tabular {
		return "tabular"
	}
	return "freeform"
}

// Table is a list of equal-arity rows with positional headers.
type Table struct {
	Headers []string
	Rows    [][]Value
}

// Result is the classified answer. Raw is always the untouched input.
type Result struct {
	Kind  ResultKind
	Raw   string
	Table *Table
}

// Interpreter classifies raw agent answers. The zero value is ready to use.
type Interpreter struct {
	log *logrus.Entry
}

// NewInterpreter returns an Interpreter that logs parse failures at debug level.
func NewInterpreter(log *logrus.Entry) *Interpreter {
	return &Interpreter{log: log}
}

// Interpret never fails: anything that is not a well-formed table is Freeform.
func (in *Interpreter) Interpret(raw string) (res Result) {
	res = Result{Kind: Freeform, Raw: raw}
	defer func() {
		if r := recover(); r != nil {
			in.debug(sqlerrors.New(sqlerrors.ResponseParse, fmt.Sprint(r)))
			res = Result{Kind: Freeform, Raw: raw}
		}
	}()

	v, err := ParseLiteral(raw)
	if err != nil {
		in.debug(sqlerrors.Wrap(sqlerrors.ResponseParse, "not a literal", err))
		return res
	}
	if t, ok := asTable(v); ok {
		res.Kind = Tabular
		res.Table = t
	}
	return res
}

func (in *Interpreter) debug(err error) {
	log := in.log
	if log == nil {
		log = logging.Discard()
	}
	log.WithError(err).Debug("answer treated as free text")
}

// asTable accepts a non-empty list of tuples of scalars sharing one arity.
func asTable(v Value) (*Table, bool) {
	if v.Kind != KindList || len(v.Items) == 0 {
		return nil, false
	}
	arity := -1
	rows := make([][]Value, 0, len(v.Items))
	for _, it := range v.Items {
		if it.Kind != KindTuple || len(it.Items) == 0 {
			return nil, false
		}
		if arity == -1 {
			arity = len(it.Items)
		} else if len(it.Items) != arity {
			return nil, false
		}
		for _, cell := range it.Items {
			if !cell.IsScalar() {
				return nil, false
			}
		}
		rows = append(rows, it.Items)
	}
	headers := make([]string, arity)
	for i := range headers {
		headers[i] = strconv.Itoa(i)
	}
	return &Table{Headers: headers, Rows: rows}, true
}

// Cells returns the table as text, formatting each column the way a
// dataframe would infer it: integer columns with a missing value, or mixed
// with floats, print as floats.
func (t *Table) Cells() [][]string {
	formatters := make([]func(Value) string, len(t.Headers))
	for col := range t.Headers {
		formatters[col] = columnFormatter(t.Rows, col)
	}
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		line := make([]string, len(row))
		for col, cell := range row {
			line[col] = formatters[col](cell)
		}
		out[i] = line
	}
	return out
}

func columnFormatter(rows [][]Value, col int) func(Value) string {
	var ints, floats, nones, other int
	for _, row := range rows {
		switch row[col].Kind {
		case KindInt:
			ints++
		case KindFloat:
			floats++
		case KindNone:
			nones++
		default:
			other++
		}
	}
	if other == 0 && ints+floats > 0 && (floats > 0 || nones > 0) {
		return func(v Value) string {
			switch v.Kind {
			case KindNone:
				return ""
			case KindInt:
				f, _ := new(big.Float).SetInt(v.Int).Float64()
				return formatFloat(f)
			}
			return formatFloat(v.Float)
		}
	}
	return Value.Text
}
