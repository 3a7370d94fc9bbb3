package gameapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/jxscript/pkg/vm"
)

// ErrBadCondition is returned for condition text the evaluator cannot read.
var ErrBadCondition = errors.New("bad condition")

// comparison operators, longest first so that ">=" wins over ">"
var operators = []string{"==", "!=", "<>", ">=", "<=", "=", ">", "<"}

// Condition evaluates the text of an If instruction against the world's variables.
//
// Supported forms are "$Var OP value" with OP one of == = != <> > >= < <=, a bare
// operand tested for non-zero, and terms joined with && and ||. && binds tighter
// than ||. Operands are "$Var" references, integers or (optionally quoted) strings;
// two integers compare numerically, anything else compares as text.
func (w *World) Condition(ctx *vm.Context, expr string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false, fmt.Errorf("%w: empty", ErrBadCondition)
	}
	for _, alt := range splitOutsideQuotes(expr, "||") {
		all := true
		for _, term := range splitOutsideQuotes(alt, "&&") {
			ok, err := w.term(term)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func (w *World) term(term string) (bool, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return false, fmt.Errorf("%w: empty term", ErrBadCondition)
	}
	if strings.HasPrefix(term, "!") && !strings.HasPrefix(term, "!=") {
		ok, err := w.term(term[1:])
		return !ok, err
	}

	pos, op := findOperator(term)
	if op == "" {
		return truthy(w.operand(term)), nil
	}

	left := strings.TrimSpace(term[:pos])
	right := strings.TrimSpace(term[pos+len(op):])
	if left == "" || right == "" {
		return false, fmt.Errorf("%w: %q", ErrBadCondition, term)
	}
	return compare(w.operand(left), op, w.operand(right)), nil
}

// operand resolves a $Var reference or strips quotes from a literal.
func (w *World) operand(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "$") {
		v, _ := w.Get(s)
		return v
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func truthy(v string) bool {
	if n, ok := toInt(v); ok {
		return n != 0
	}
	return !strings.EqualFold(v, "false")
}

func compare(a, op, b string) bool {
	x, xok := toInt(a)
	y, yok := toInt(b)
	c := 0
	if xok && yok {
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	} else {
		c = strings.Compare(a, b)
	}

	switch op {
	case "==", "=":
		return c == 0
	case "!=", "<>":
		return c != 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	}
	return false
}

// findOperator returns the first comparison operator outside quotes.
func findOperator(s string) (int, string) {
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		for _, op := range operators {
			if strings.HasPrefix(s[i:], op) {
				return i, op
			}
		}
	}
	return -1, ""
}

func splitOutsideQuotes(s, sep string) []string {
	var parts []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
