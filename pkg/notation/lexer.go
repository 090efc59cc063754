package notation

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer tokenizes algebraic feedback expressions, either plain
// ("x0 + x1*x3") or TeX ("x_{0} + x_{1} \cdot x_{3}"). Input is NFKC-folded
// first, so subscript digits arrive as ASCII.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},

	// XOR over GF(2)
	{Name: "Plus", Pattern: `\+|\\oplus|⊕`},
	// AND
	{Name: "Mul", Pattern: `\*|\\cdot|\\times|\\land|·|⋅|×|∧`},

	{Name: "Var", Pattern: `[xX]`},
	{Name: "Sub", Pattern: `_`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Int", Pattern: `[0-9]+`},
})
