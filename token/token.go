// Package token defines the lexical tokens produced by the smolisa
// assembly tokenizer.
package token

import "github.com/AsuMagic/smolisa-tools/isa"

// Directive distinguishes the two '#' assembler directives.
type Directive int

const (
	IncludeBinaryFile Directive = iota
	ByteOffset
)

// Kind tags the variant carried by a Token.
type Kind int

const (
	Invalid Kind = iota
	Eof
	Newline
	Colon
	DirectiveTok
	ImmediateTok
	StringLiteralTok
	ByteSelectorTok
	MnemonicTok
	RegisterReferenceTok
	LabelTok
)

// Span locates a token's source text, for diagnostics.
type Span struct {
	Offset int // byte offset of the first character
	Length int
}

// Token is a tagged lexical unit. Only the field(s) relevant to Kind are
// meaningful; the rest are zero.
type Token struct {
	Kind Kind
	Span Span

	Directive   Directive
	Immediate   isa.Word
	Text        string // StringLiteral contents, or Label name
	IsUpperByte bool   // ByteSelector: ~high vs ~low
	Mnemonic    isa.Opcode
	RegisterRef isa.RegisterId
}
