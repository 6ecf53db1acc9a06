package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AsuMagic/smolisa-tools/isa"
)

// Tokenizer is a single-pass byte cursor over assembly source. It is
// restartable only from the start of source — there is no seek operation.
type Tokenizer struct {
	source     string
	pos        int // index of the next unread byte
	last       byte
	tokenBegin int
}

// New creates a Tokenizer over source. Call ConsumeToken repeatedly until
// it returns a Token with Kind == Eof.
func New(source string) *Tokenizer {
	return &Tokenizer{source: source}
}

func isSpace(c byte) bool   { return c == ' ' || c == '\t' }
func isNewline(c byte) bool { return c == '\n' || c == '\r' }
func isDigit(c byte) bool   { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
func isIdentifierBegin(c byte) bool { return isAlpha(c) }
func isIdentifier(c byte) bool      { return isAlpha(c) || isDigit(c) }

// read advances the cursor by one byte and returns it, or 0 at end of
// source (mirroring the C++ cursor's null-terminator sentinel).
func (t *Tokenizer) read() byte {
	if t.pos < len(t.source) {
		t.last = t.source[t.pos]
		t.pos++
		return t.last
	}
	t.last = 0
	return 0
}

func (t *Tokenizer) tokenString() string {
	return t.source[t.tokenBegin:t.pos]
}

func (t *Tokenizer) span() Span {
	return Span{Offset: t.tokenBegin, Length: t.pos - t.tokenBegin}
}

// skipSpaces eats SP/TAB runs. It also eats ',' — the grammar treats
// operand-separating commas as whitespace rather than giving them their
// own token, so a comma here is indistinguishable from a space.
func (t *Tokenizer) skipSpaces() {
	for (isSpace(t.last) || t.last == ',') && t.read() != 0 {
	}
}

// ConsumeToken returns the next token. err is non-nil only for an
// unterminated string literal or an integer literal that does not parse;
// any other lexical oddity comes back as a Token with Kind == Invalid so
// the assembler can decide whether to fail or keep scanning.
func (t *Tokenizer) ConsumeToken() (Token, error) {
	if t.read() == 0 {
		return Token{Kind: Eof, Span: t.span()}, nil
	}

	t.skipSpaces()

	if t.last == ';' {
		for t.last != '\n' && t.read() != 0 {
		}
	}

	t.tokenBegin = t.pos - 1

	if isNewline(t.last) {
		return Token{Kind: Newline, Span: t.span()}, nil
	}

	if t.last == ':' {
		return Token{Kind: Colon, Span: t.span()}, nil
	}

	switch {
	case t.last == '#':
		for isAlpha(t.read()) {
		}
		t.pos--

		switch t.tokenString() {
		case "#binary":
			return Token{Kind: DirectiveTok, Directive: IncludeBinaryFile, Span: t.span()}, nil
		case "#offset":
			t.tokenBegin = t.pos
			return Token{Kind: DirectiveTok, Directive: ByteOffset, Span: t.span()}, nil
		default:
			return Token{Kind: Invalid, Span: t.span()}, nil
		}

	case t.last == '\'':
		ascii := t.read()
		if t.read() == '\'' {
			return Token{Kind: ImmediateTok, Immediate: isa.Word(ascii), Span: t.span()}, nil
		}
		return Token{Kind: Invalid, Span: t.span()}, nil

	case t.last == '"':
		lit, err := t.parseStringLiteral()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: StringLiteralTok, Text: lit, Span: t.span()}, nil

	case t.last == '~':
		for isAlpha(t.read()) {
		}
		if t.last != 0 {
			t.pos--
		}

		switch t.tokenString() {
		case "~low":
			return Token{Kind: ByteSelectorTok, IsUpperByte: false, Span: t.span()}, nil
		case "~high":
			return Token{Kind: ByteSelectorTok, IsUpperByte: true, Span: t.span()}, nil
		default:
			return Token{Kind: Invalid, Span: t.span()}, nil
		}

	case isIdentifierBegin(t.last) || t.last == '$':
		for isIdentifier(t.read()) {
		}
		if t.last != 0 {
			t.pos--
		}

		str := t.tokenString()

		if info, ok := isa.LookupMnemonic(str); ok {
			return Token{Kind: MnemonicTok, Mnemonic: info.Op, Span: t.span()}, nil
		}
		if reg, ok := isa.LookupRegister(str); ok {
			return Token{Kind: RegisterReferenceTok, RegisterRef: reg, Span: t.span()}, nil
		}
		return Token{Kind: LabelTok, Text: str, Span: t.span()}, nil

	case isDigit(t.last):
		val, err := t.parseIntegral()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: ImmediateTok, Immediate: val, Span: t.span()}, nil
	}

	if t.pos >= len(t.source) {
		return Token{Kind: Eof, Span: t.span()}, nil
	}

	return Token{Kind: Invalid, Span: t.span()}, nil
}

func (t *Tokenizer) parseIntegral() (isa.Word, error) {
	for !isSpace(t.last) && !isNewline(t.last) && t.read() != 0 {
	}
	if t.last != 0 {
		t.pos--
	}

	str := t.tokenString()

	base := 10
	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	val, err := strconv.ParseUint(str, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q at offset %d: %w", t.tokenString(), t.tokenBegin, err)
	}
	return isa.Word(val), nil
}

func (t *Tokenizer) parseStringLiteral() (string, error) {
	t.tokenBegin = t.pos
	t.read()

	for t.last != '"' && !isNewline(t.read()) && t.pos < len(t.source) {
	}

	if t.last != '"' {
		return "", fmt.Errorf("string literal starting at offset %d must end with '\"' before end of line", t.tokenBegin)
	}

	return strings.TrimSuffix(t.tokenString(), "\""), nil
}
