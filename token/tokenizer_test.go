package token

import (
	"testing"

	"github.com/AsuMagic/smolisa-tools/isa"
)

func consumeAll(t *testing.T, src string) []Token {
	t.Helper()
	tz := New(src)
	var toks []Token
	for {
		tok, err := tz.ConsumeToken()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == Eof {
			return toks
		}
	}
}

func TestMnemonicAndRegister(t *testing.T) {
	toks := consumeAll(t, "li $g0, 0x2A\n")

	want := []Kind{MnemonicTok, RegisterReferenceTok, ImmediateTok, Newline, Eof}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got kind %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[0].Mnemonic != isa.Li {
		t.Errorf("mnemonic = %v, want Li", toks[0].Mnemonic)
	}
	if toks[1].RegisterRef != isa.G0 {
		t.Errorf("register = %v, want G0", toks[1].RegisterRef)
	}
	if toks[2].Immediate != 0x2A {
		t.Errorf("immediate = %#x, want 0x2a", toks[2].Immediate)
	}
}

func TestLabelAndColon(t *testing.T) {
	toks := consumeAll(t, "start:\n")
	if toks[0].Kind != LabelTok || toks[0].Text != "start" {
		t.Fatalf("got %+v, want Label(start)", toks[0])
	}
	if toks[1].Kind != Colon {
		t.Fatalf("got %+v, want Colon", toks[1])
	}
}

func TestByteSelector(t *testing.T) {
	toks := consumeAll(t, "~low ~high\n")
	if toks[0].Kind != ByteSelectorTok || toks[0].IsUpperByte {
		t.Fatalf("got %+v, want ~low", toks[0])
	}
	if toks[1].Kind != ByteSelectorTok || !toks[1].IsUpperByte {
		t.Fatalf("got %+v, want ~high", toks[1])
	}
}

func TestDirectives(t *testing.T) {
	toks := consumeAll(t, "#offset 0x100\n#binary \"x.bin\"\n")
	if toks[0].Kind != DirectiveTok || toks[0].Directive != ByteOffset {
		t.Fatalf("got %+v, want #offset", toks[0])
	}
	if toks[1].Kind != ImmediateTok || toks[1].Immediate != 0x100 {
		t.Fatalf("got %+v, want immediate 0x100", toks[1])
	}
	if toks[2].Kind != Newline {
		t.Fatalf("got %+v, want newline", toks[2])
	}
	if toks[3].Kind != DirectiveTok || toks[3].Directive != IncludeBinaryFile {
		t.Fatalf("got %+v, want #binary", toks[3])
	}
	if toks[4].Kind != StringLiteralTok || toks[4].Text != "x.bin" {
		t.Fatalf("got %+v, want string literal x.bin", toks[4])
	}
}

func TestCharLiteral(t *testing.T) {
	toks := consumeAll(t, "'A'\n")
	if toks[0].Kind != ImmediateTok || toks[0].Immediate != 'A' {
		t.Fatalf("got %+v, want immediate 'A'", toks[0])
	}
}

func TestComment(t *testing.T) {
	toks := consumeAll(t, "li $g0, 1 ; comment\nadd $g1, $g0, $g0\n")
	var mnemonics []isa.Opcode
	for _, tok := range toks {
		if tok.Kind == MnemonicTok {
			mnemonics = append(mnemonics, tok.Mnemonic)
		}
	}
	if len(mnemonics) != 2 || mnemonics[0] != isa.Li || mnemonics[1] != isa.Add {
		t.Fatalf("got mnemonics %v", mnemonics)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	tz := New("#binary \"oops\n")
	if _, err := tz.ConsumeToken(); err != nil {
		t.Fatalf("unexpected error on #binary: %v", err)
	}
	if _, err := tz.ConsumeToken(); err == nil {
		t.Fatalf("expected error for unterminated string literal")
	}
}

func TestInvalidSentinel(t *testing.T) {
	toks := consumeAll(t, "@\n")
	if toks[0].Kind != Invalid {
		t.Fatalf("got %+v, want Invalid", toks[0])
	}
}

func TestDecimalAndHexImmediates(t *testing.T) {
	toks := consumeAll(t, "42 0xff\n")
	if toks[0].Immediate != 42 {
		t.Fatalf("decimal parse: got %d", toks[0].Immediate)
	}
	if toks[1].Immediate != 0xff {
		t.Fatalf("hex parse: got %#x", toks[1].Immediate)
	}
}
