package arch

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses fabriclink architecture files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new architecture parser instance.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(ArchLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses an architecture file from a reader.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	file, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file, nil
}

// ParseString parses an architecture file from a string.
func (p *Parser) ParseString(input string) (*File, error) {
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file, nil
}

// ParseFile parses an architecture file from a file path.
func (p *Parser) ParseFile(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// LoadFile parses and builds the architecture at filename.
func LoadFile(filename string) (*Architecture, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	file, err := p.ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return Build(file)
}

// LoadString parses and builds an architecture held in a string.
func LoadString(input string) (*Architecture, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	file, err := p.ParseString(input)
	if err != nil {
		return nil, err
	}
	return Build(file)
}
