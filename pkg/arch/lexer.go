package arch

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ArchLexer defines the lexical structure of fabriclink architecture files.
// Keywords are plain identifiers and are matched by the grammar.
var ArchLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run from # to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Literals
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Float", Pattern: `[-+]?[0-9]+\.[0-9]*([eE][-+]?[0-9]+)?|[-+]?[0-9]+[eE][-+]?[0-9]+`},
	{Name: "Integer", Pattern: `[-+]?[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

	// Punctuation
	{Name: "Assign", Pattern: `=`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
})
