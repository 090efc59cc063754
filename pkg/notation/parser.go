// Package notation reads and writes feedback functions as text.
//
// Two input forms are accepted. The algebraic form is a sum of products of
// variables, plain or TeX:
//
//	x0 + x2 + x1*x3
//	x_{0} + x_{2} + x_{1} \cdot x_{3}
//	x₀ ⊕ x₂ ⊕ x₁·x₃
//
// The list form is an s-expression with one list per monomial:
//
//	((0) (2) (1 3))
package notation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/chewxy/sexp"
	"golang.org/x/text/unicode/norm"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

var ErrSyntax = errors.New("notation: syntax error")

type expression struct {
	Terms []*term `@@ ( Plus @@ )*`
}

type term struct {
	Factors []*factor `@@ ( Mul? @@ )*`
}

type factor struct {
	Index int `Var Sub? ( LBrace @Int RBrace | @Int )`
}

var exprParser = participle.MustBuild[expression](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
)

// Parse reads either form, picking the list form when the input starts with
// a parenthesis. The result is in order-lex form.
func Parse(s string) (feedback.Function, error) {
	s = norm.NFKC.String(strings.TrimSpace(s))
	if strings.HasPrefix(s, "(") {
		return ParseList(s)
	}
	return ParseExpression(s)
}

// ParseExpression reads the algebraic form. Surrounding TeX math delimiters
// are ignored.
func ParseExpression(s string) (feedback.Function, error) {
	s = norm.NFKC.String(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.Trim(s, "$"))

	expr, err := exprParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	f := make(feedback.Function, 0, len(expr.Terms))
	for _, t := range expr.Terms {
		m := make(feedback.Monomial, 0, len(t.Factors))
		for _, fac := range t.Factors {
			m = append(m, fac.Index)
		}
		f = append(f, m)
	}
	return feedback.OrderLex(f), nil
}

// ParseList reads the s-expression list form. The reader folds a
// one-element list such as (3) into its atom, so a bare index at the
// monomial level is read as a linear monomial and ((0) 2) equals ((0) (2)).
func ParseList(s string) (feedback.Function, error) {
	if err := checkParens(s); err != nil {
		return nil, err
	}
	exprs, err := sexp.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(exprs) != 1 {
		return nil, fmt.Errorf("%w: want one list, got %d expressions", ErrSyntax, len(exprs))
	}
	root, ok := exprs[0].(sexp.List)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a list of monomials", ErrSyntax, s)
	}

	f := make(feedback.Function, 0, len(root))
	for _, node := range root {
		m, err := listMonomial(node)
		if err != nil {
			return nil, err
		}
		f = append(f, m)
	}
	return feedback.OrderLex(f), nil
}

func listMonomial(node sexp.Sexp) (feedback.Monomial, error) {
	switch n := node.(type) {
	case sexp.Symbol:
		idx, err := listIndex(n)
		if err != nil {
			return nil, err
		}
		return feedback.Monomial{idx}, nil
	case sexp.List:
		if len(n) == 0 {
			return nil, fmt.Errorf("%w: empty monomial", ErrSyntax)
		}
		m := make(feedback.Monomial, 0, len(n))
		for _, leaf := range n {
			sym, ok := leaf.(sexp.Symbol)
			if !ok {
				return nil, fmt.Errorf("%w: nested list %v inside a monomial", ErrSyntax, leaf)
			}
			idx, err := listIndex(sym)
			if err != nil {
				return nil, err
			}
			m = append(m, idx)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unexpected node %v", ErrSyntax, node)
}

func listIndex(sym sexp.Symbol) (int, error) {
	idx, err := strconv.Atoi(string(sym))
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("%w: bad index %q", ErrSyntax, string(sym))
	}
	return idx, nil
}

// checkParens rejects unbalanced and empty lists before the reader sees
// them; the reader panics on a stray ')' and yields a placeholder for ().
func checkParens(s string) error {
	depth := 0
	open := false
	for _, r := range s {
		switch {
		case r == '(':
			depth++
			open = true
		case r == ')':
			if open {
				return fmt.Errorf("%w: empty list in %q", ErrSyntax, s)
			}
			if depth--; depth < 0 {
				return fmt.Errorf("%w: unbalanced ')' in %q", ErrSyntax, s)
			}
		case unicode.IsSpace(r):
			continue
		default:
			open = false
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced '(' in %q", ErrSyntax, s)
	}
	return nil
}
