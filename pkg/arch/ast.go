package arch

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// File is a complete architecture file.
type File struct {
	Decls []*Decl `@@*`
}

// Decl is one top-level declaration.
//
//	circuit_model mux_tree type=mux structure=tree default;
//	switch ipin_cblock model=mux_tree;
//	pb_type clb physical_mode=default { ... }
type Decl struct {
	Pos lexer.Position

	Circuit    *NamedDecl      `  "circuit_model" @@`
	Switch     *NamedDecl      `| "switch" @@`
	Segment    *NamedDecl      `| "segment" @@`
	Direct     *NamedDecl      `| "direct" @@`
	PbType     *PbTypeDecl     `| "pb_type" @@`
	Simulation *SimulationDecl `| "simulation" @@`
}

// NamedDecl is a name followed by attributes and a semicolon.
type NamedDecl struct {
	Pos   lexer.Position
	Name  string  `@Ident`
	Attrs []*Attr `@@* Semicolon`
}

// Attr is key=value or a bare flag.
type Attr struct {
	Pos   lexer.Position
	Key   string `@Ident`
	Value *Value `( Assign @@ )?`
}

// Value is a number, a quoted string or a dotted reference.
type Value struct {
	Number *float64 `  @( Float | Integer )`
	String *string  `| @String`
	Ref    []string `| @Ident ( Dot @Ident )*`
}

// Text returns the value as written, without quotes.
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return *v.String
	case len(v.Ref) > 0:
		return strings.Join(v.Ref, ".")
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'g', -1, 64)
	}
	return ""
}

// PbTypeDecl declares a pb type with its ports and modes.
type PbTypeDecl struct {
	Pos   lexer.Position
	Name  string    `@Ident`
	Attrs []*Attr   `@@*`
	Body  []*PbItem `LBrace @@* RBrace`
}

// PbItem is a port or a mode inside a pb type.
type PbItem struct {
	Port *PortDecl `  @@`
	Mode *ModeDecl `| "mode" @@`
}

// PortDecl declares a port, e.g. "input I[8] physical=in;".
type PortDecl struct {
	Pos       lexer.Position
	Direction string  `@( "input" | "output" | "clock" )`
	Name      string  `@Ident`
	Width     *int    `( LBracket @Integer RBracket )?`
	Attrs     []*Attr `@@* Semicolon`
}

// ModeDecl declares a mode with child pb types and interconnects.
type ModeDecl struct {
	Pos   lexer.Position
	Name  string      `@Ident`
	Attrs []*Attr     `@@*`
	Items []*ModeItem `LBrace @@* RBrace`
}

// ModeItem is a child pb type or an interconnect.
type ModeItem struct {
	PbType       *PbTypeDecl `  "pb_type" @@`
	Interconnect *NamedDecl  `| "interconnect" @@`
}

// SimulationDecl holds simulation settings as "key=value;" lines.
type SimulationDecl struct {
	Pos      lexer.Position
	Settings []*Attr `LBrace ( @@ Semicolon )* RBrace`
}
