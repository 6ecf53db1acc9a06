// Package asm implements the smolisa assembler: the two-pass pipeline
// that turns a token stream into a flat byte image plus a resolved label
// table.
package asm

import (
	"fmt"
	"os"

	"github.com/AsuMagic/smolisa-tools/isa"
	"github.com/AsuMagic/smolisa-tools/token"
)

// Selector picks which byte of a resolved 16-bit label address a fix-up
// patches.
type Selector int

const (
	SelectorLowByte Selector = iota
	SelectorHighByte
)

// fixup is a deferred patch site recorded for every ~low/~high label
// reference, whether or not the label is already defined; pass 2 patches
// it.
type fixup struct {
	outputOffset int
	label        string
	selector     Selector
	span         token.Span
}

// label tracks a name's binding: its resolved offset (once seen) and
// nothing else — pending references live in Assembler.fixups, not here,
// so there's no cycle between the two tables.
type label struct {
	offset   int
	resolved bool
}

// FileReader abstracts reading the referent of a "#binary" directive, so
// tests can supply an in-memory filesystem instead of touching disk.
type FileReader func(path string) ([]byte, error)

// Assembler holds the shared output buffer and label table used across
// both passes.
type Assembler struct {
	ProgramOutput []byte

	labels     map[string]*label
	fixups     []fixup
	readFile   FileReader
	tok        *token.Tokenizer
	lastSpan   token.Span
	lookaheadT *token.Token
}

// LexError, ParseError, LinkError, and IoError name the non-fault error
// kinds spec §7 assigns to the assembler. ParseError carries the
// offending token's span; LexError carries the span of the last token
// read before the failure (its wrapped error names the failing offset);
// LinkError carries only a message and IoError the path it failed on.
type LexError struct {
	Span token.Span
	Err  error
}

func (e *LexError) Error() string { return fmt.Sprintf("lex error at offset %d: %v", e.Span.Offset, e.Err) }
func (e *LexError) Unwrap() error { return e.Err }

type ParseError struct {
	Span token.Span
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Span.Offset, e.Msg)
}

type LinkError struct {
	Msg string
}

func (e *LinkError) Error() string { return fmt.Sprintf("link error: %s", e.Msg) }

type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("io error reading %q: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// Assemble runs both passes over source and returns the finished byte
// image, or the first error encountered.
func Assemble(source string) (*Assembler, error) {
	return AssembleWithFileReader(source, os.ReadFile)
}

// AssembleWithFileReader is Assemble with an injectable "#binary" file
// reader, for testing #binary without touching the real filesystem.
func AssembleWithFileReader(source string, readFile FileReader) (*Assembler, error) {
	a := &Assembler{
		labels:   make(map[string]*label),
		fixups:   nil,
		readFile: readFile,
		tok:      token.New(source),
	}

	if err := a.pass1(); err != nil {
		return nil, err
	}
	if err := a.pass2(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Assembler) next() (token.Token, error) {
	if a.lookaheadT != nil {
		t := *a.lookaheadT
		a.lookaheadT = nil
		a.lastSpan = t.Span
		return t, nil
	}
	t, err := a.tok.ConsumeToken()
	if err != nil {
		return token.Token{}, &LexError{Span: a.lastSpan, Err: err}
	}
	a.lastSpan = t.Span
	return t, nil
}

func (a *Assembler) peek() (token.Token, error) {
	if a.lookaheadT == nil {
		t, err := a.tok.ConsumeToken()
		if err != nil {
			return token.Token{}, &LexError{Span: a.lastSpan, Err: err}
		}
		a.lookaheadT = &t
	}
	return *a.lookaheadT, nil
}

func (a *Assembler) emitWord(w isa.Word) {
	a.ProgramOutput = append(a.ProgramOutput, byte(w), byte(w>>8))
}

// labelFor returns (creating if necessary) the label entry for name.
func (a *Assembler) labelFor(name string) *label {
	l, ok := a.labels[name]
	if !ok {
		l = &label{}
		a.labels[name] = l
	}
	return l
}

// pass1 walks the token stream, emitting bytes for each statement and
// recording label definitions plus fix-ups for byte-selected label
// references.
func (a *Assembler) pass1() error {
	for {
		t, err := a.next()
		if err != nil {
			return err
		}

		switch t.Kind {
		case token.Eof:
			return nil

		case token.Newline:
			continue

		case token.DirectiveTok:
			if err := a.assembleDirective(t); err != nil {
				return err
			}

		case token.LabelTok:
			name := t.Text
			peeked, err := a.peek()
			if err != nil {
				return err
			}
			if peeked.Kind == token.Colon {
				if _, err := a.next(); err != nil {
					return err
				}
				l := a.labelFor(name)
				l.offset = len(a.ProgramOutput)
				l.resolved = true
				continue
			}
			return &ParseError{Span: t.Span, Msg: fmt.Sprintf("label reference %q cannot start a statement", name)}

		case token.MnemonicTok:
			if err := a.assembleInstruction(t); err != nil {
				return err
			}

		default:
			return &ParseError{Span: t.Span, Msg: fmt.Sprintf("unexpected token kind %d at start of statement", t.Kind)}
		}
	}
}

func (a *Assembler) assembleDirective(t token.Token) error {
	switch t.Directive {
	case token.ByteOffset:
		imm, err := a.expectImmediate()
		if err != nil {
			return err
		}
		target := int(imm)
		if target < len(a.ProgramOutput) {
			return &LinkError{Msg: fmt.Sprintf("#offset %#x moves backward from current offset %#x", target, len(a.ProgramOutput))}
		}
		for len(a.ProgramOutput) < target {
			a.ProgramOutput = append(a.ProgramOutput, 0)
		}
		return nil

	case token.IncludeBinaryFile:
		str, err := a.expectString()
		if err != nil {
			return err
		}
		data, err := a.readFile(str)
		if err != nil {
			return &IoError{Path: str, Err: err}
		}
		a.ProgramOutput = append(a.ProgramOutput, data...)
		return nil
	}
	return &ParseError{Span: t.Span, Msg: "unknown directive"}
}

func (a *Assembler) expectImmediate() (isa.Word, error) {
	t, err := a.next()
	if err != nil {
		return 0, err
	}
	if t.Kind != token.ImmediateTok {
		return 0, &ParseError{Span: t.Span, Msg: "expected an immediate value"}
	}
	return t.Immediate, nil
}

func (a *Assembler) expectString() (string, error) {
	t, err := a.next()
	if err != nil {
		return "", err
	}
	if t.Kind != token.StringLiteralTok {
		return "", &ParseError{Span: t.Span, Msg: "expected a string literal"}
	}
	return t.Text, nil
}

func (a *Assembler) expectRegister() (isa.RegisterId, error) {
	t, err := a.next()
	if err != nil {
		return 0, err
	}
	if t.Kind != token.RegisterReferenceTok {
		return 0, &ParseError{Span: t.Span, Msg: "expected a register operand"}
	}
	return t.RegisterRef, nil
}

// assembleInstruction reads and emits one instruction statement, given
// that its Mnemonic token has just been consumed.
func (a *Assembler) assembleInstruction(t token.Token) error {
	info := t.Mnemonic.Info()

	switch info.Format {
	case isa.FormatTypeI:
		rdst, err := a.expectRegister()
		if err != nil {
			return err
		}

		operand, err := a.readImmediateOrLabelRef()
		if err != nil {
			return err
		}
		if !operand.hasSelector {
			a.emitWord(isa.TypeI{Op: t.Mnemonic, RDst: rdst, Imm8: isa.Byte(operand.imm)}.Encode())
			return nil
		}

		// Label reference with ~low/~high: emit a placeholder byte now
		// and record a fix-up pointing at it.
		offset := len(a.ProgramOutput)
		a.emitWord(isa.TypeI{Op: t.Mnemonic, RDst: rdst, Imm8: 0}.Encode())
		a.fixups = append(a.fixups, fixup{
			outputOffset: offset + 1, // high byte of the little-endian word holds Imm8
			label:        operand.label,
			selector:     operand.selector,
			span:         t.Span,
		})
		return nil

	case isa.FormatTypeR:
		var regs [3]isa.RegisterId
		for i := 0; i < info.NumRegOperands; i++ {
			r, err := a.expectRegister()
			if err != nil {
				return err
			}
			regs[i] = r
		}
		a.emitWord(isa.TypeR{Op: t.Mnemonic, R1: regs[0], R2: regs[1], R3: regs[2]}.Encode())
		return nil
	}

	return &ParseError{Span: t.Span, Msg: "unknown instruction format"}
}

// typeIOperand is the result of reading a TypeI immediate-or-label-ref
// operand: either a resolved immediate, or a pending label reference
// with its byte selector.
type typeIOperand struct {
	imm         isa.Word
	label       string
	selector    Selector
	hasSelector bool
}

// readImmediateOrLabelRef reads a TypeI operand: either a plain
// Immediate token, or a ByteSelector followed by a Label. Per spec,
// labels without an explicit selector are illegal in TypeI context.
func (a *Assembler) readImmediateOrLabelRef() (typeIOperand, error) {
	t, err := a.next()
	if err != nil {
		return typeIOperand{}, err
	}

	switch t.Kind {
	case token.ImmediateTok:
		return typeIOperand{imm: t.Immediate}, nil

	case token.ByteSelectorTok:
		sel := SelectorLowByte
		if t.IsUpperByte {
			sel = SelectorHighByte
		}
		labelTok, err := a.next()
		if err != nil {
			return typeIOperand{}, err
		}
		if labelTok.Kind != token.LabelTok {
			return typeIOperand{}, &ParseError{Span: labelTok.Span, Msg: "byte selector must be followed by a label"}
		}
		return typeIOperand{label: labelTok.Text, selector: sel, hasSelector: true}, nil

	case token.LabelTok:
		return typeIOperand{}, &ParseError{Span: t.Span, Msg: fmt.Sprintf("label %q used as an immediate needs a ~low/~high selector", t.Text)}

	default:
		return typeIOperand{}, &ParseError{Span: t.Span, Msg: "expected an immediate or a byte-selected label"}
	}
}

// pass2 patches every recorded fix-up against the now-complete label
// table.
func (a *Assembler) pass2() error {
	for _, f := range a.fixups {
		l, ok := a.labels[f.label]
		if !ok || !l.resolved {
			return &LinkError{Msg: fmt.Sprintf("unresolved label %q", f.label)}
		}

		addr := isa.Word(l.offset)
		var b byte
		switch f.selector {
		case SelectorLowByte:
			b = byte(addr)
		case SelectorHighByte:
			b = byte(addr >> 8)
		}
		a.ProgramOutput[f.outputOffset] = b
	}
	return nil
}
