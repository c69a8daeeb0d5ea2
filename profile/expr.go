// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package profile

import (
	"iter"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"gopkg.in/yaml.v3"
)

// Expr is a numeric profile value: an integer literal, a define name, or
// a $(...) expression over the defines.
type Expr string

// UnmarshalYAML implements yaml.Unmarshaler for Expr.
func (e *Expr) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return ErrParseExpression(value.Value)
	}
	*e = Expr(strings.TrimSpace(value.Value))
	return nil
}

// Evaluator resolves Expr values against a set of integer defines.
type Evaluator struct {
	defines starlark.StringDict
}

// NewEvaluator creates an evaluator. Defines that are not integers are
// ignored.
func NewEvaluator(defines iter.Seq2[string, string]) (ev *Evaluator) {
	ev = &Evaluator{
		defines: starlark.StringDict{},
	}

	for key, str := range defines {
		value, err := strconv.ParseInt(str, 0, 64)
		if err != nil {
			continue
		}
		ev.defines[key] = starlark.MakeInt64(value)
	}

	return
}

// Eval resolves e to an integer.
func (ev *Evaluator) Eval(e Expr) (value int64, err error) {
	word := string(e)

	if inner, ok := strings.CutPrefix(word, "$("); ok && strings.HasSuffix(inner, ")") {
		return ev.parenEval(inner[:len(inner)-1])
	}

	if define, ok := ev.defines[word]; ok {
		st_int, ok := define.(starlark.Int)
		if ok {
			value, ok = st_int.Int64()
		}
		if !ok {
			err = ErrRange
		}
		return
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// parenEval evaluates a $(...) body with starlark.
func (ev *Evaluator) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, ev.defines)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// Uint32 resolves e to a value that fits a register field.
func (ev *Evaluator) Uint32(e Expr) (value uint32, err error) {
	v64, err := ev.Eval(e)
	if err != nil {
		return
	}
	if v64 < 0 || v64 > 0xffff_ffff {
		err = ErrRange
		return
	}
	value = uint32(v64)
	return
}
