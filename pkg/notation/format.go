package notation

import (
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// FormatTeX renders f as a TeX sum, linear terms first:
// "x_{0} + x_{2} + x_{1} \cdot x_{3}".
func FormatTeX(f feedback.Function) string {
	return format(f, func(i int) string { return "x_{" + strconv.Itoa(i) + "}" }, " \\cdot ")
}

// Format renders f in the plain algebraic form: "x0 + x2 + x1*x3".
func Format(f feedback.Function) string {
	return format(f, func(i int) string { return "x" + strconv.Itoa(i) }, "*")
}

func format(f feedback.Function, variable func(int) string, mul string) string {
	ordered := feedback.OrderLex(f)
	var terms []string
	for _, m := range ordered {
		if len(m) == 1 {
			terms = append(terms, variable(m[0]))
		}
	}
	for _, m := range ordered {
		if len(m) < 2 {
			continue
		}
		factors := make([]string, len(m))
		for i, idx := range m {
			factors[i] = variable(idx)
		}
		terms = append(terms, strings.Join(factors, mul))
	}
	return strings.Join(terms, " + ")
}

// FormatList renders f in the s-expression list form.
func FormatList(f feedback.Function) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, m := range feedback.OrderLex(f) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('(')
		for j, idx := range m {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.Itoa(idx))
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}
