// Package isa holds the static metadata for the smolisa instruction set:
// opcodes, register ids, and the two packed 16-bit instruction encodings.
// It has no behaviour of its own; the tokenizer, assembler, and CPU core
// all key off these tables so that encode/decode stays in exactly one
// place.
package isa

import "fmt"

// Byte and Word are the two architectural cell sizes. Both are unsigned;
// Word wraps modulo 2^16 on every arithmetic op performed against it.
type Byte = uint8
type Word = uint16

// RegisterId is a 4-bit register index (0..15).
type RegisterId uint8

const (
	G0 RegisterId = iota
	G1
	G2
	G3
	G4
	G5
	G6
	G7
	G8
	G9
	G10
	G11
	G12
	G13
	Ip
	Bank
)

// RegisterCount is the fixed size of the register file.
const RegisterCount = 16

// registerNames is ordered by RegisterId so that index distance recovers
// the id, mirroring how the tokenizer resolves "$g0".."$bank" to ids.
var registerNames = [RegisterCount]string{
	"$g0", "$g1", "$g2", "$g3", "$g4", "$g5", "$g6", "$g7",
	"$g8", "$g9", "$g10", "$g11", "$g12", "$g13", "$ip", "$bank",
}

// LookupRegister resolves a source-level register name (including the
// leading '$') to its id. ok is false if name isn't a register.
func LookupRegister(name string) (RegisterId, bool) {
	for i, n := range registerNames {
		if n == name {
			return RegisterId(i), true
		}
	}
	return 0, false
}

func (r RegisterId) String() string {
	if int(r) >= RegisterCount {
		return fmt.Sprintf("$?%d", r)
	}
	return registerNames[r]
}

// TraceName renders the register name the way the debug trace does:
// "ip", "bank", or "gN" with no leading '$'.
func (r RegisterId) TraceName() string {
	switch r {
	case Ip:
		return "ip"
	case Bank:
		return "bank"
	default:
		return fmt.Sprintf("g%d", r)
	}
}

// Opcode is the 4-bit operation field carried in the low nibble of every
// instruction word.
type Opcode uint8

const (
	Li Opcode = iota
	Liu
	Lb
	Sb
	Lw
	Sw
	Lrz
	Lrnz
	Add
	Sub
	And
	Or
	Xor
	Shl
	Shr
	Swb
)

// OpcodeCount is the number of defined opcodes; the 4-bit field has no
// room left for more.
const OpcodeCount = 16

// Format selects which of the two instruction encodings an opcode uses.
type Format int

const (
	FormatTypeI Format = iota
	FormatTypeR
)

// OpInfo is one row of the ISA table: everything the tokenizer, assembler,
// and CPU need to know about an opcode besides its bit-level execution.
type OpInfo struct {
	Op       Opcode
	Mnemonic string
	Format   Format
	// NumRegOperands is how many RegisterReference operands the assembler
	// must read for a TypeR instruction, in encoding order (r1, r2, r3).
	// Unused trailing slots encode as zero. Ignored for TypeI.
	NumRegOperands int
	Cycles         uint64
}

// opcodeTable is ordered by Opcode value so that Info can index it
// directly; each row also carries its own Op, which is what the
// tokenizer's mnemonic lookup returns.
var opcodeTable = [OpcodeCount]OpInfo{
	{Li, "li", FormatTypeI, 0, 2},
	{Liu, "liu", FormatTypeI, 0, 2},
	{Lb, "lb", FormatTypeR, 2, 4},
	{Sb, "sb", FormatTypeR, 2, 4},
	{Lw, "lw", FormatTypeR, 2, 4},
	{Sw, "sw", FormatTypeR, 2, 4},
	{Lrz, "lrz", FormatTypeR, 3, 3},
	{Lrnz, "lrnz", FormatTypeR, 3, 3},
	{Add, "add", FormatTypeR, 3, 3},
	{Sub, "sub", FormatTypeR, 3, 3},
	{And, "and", FormatTypeR, 3, 3},
	{Or, "or", FormatTypeR, 3, 3},
	{Xor, "xor", FormatTypeR, 3, 3},
	{Shl, "shl", FormatTypeR, 3, 3},
	{Shr, "shr", FormatTypeR, 3, 3},
	{Swb, "swb", FormatTypeR, 3, 3},
}

// LookupMnemonic resolves a source-level mnemonic to its opcode info.
func LookupMnemonic(mnemonic string) (OpInfo, bool) {
	for _, info := range opcodeTable {
		if info.Mnemonic == mnemonic {
			return info, true
		}
	}
	return OpInfo{}, false
}

// Info returns the ISA table row for op. Panics if op is out of range;
// callers that decode raw bits must check IsValid first.
func (op Opcode) Info() OpInfo {
	return opcodeTable[op]
}

// IsValid reports whether op names a defined instruction.
func (op Opcode) IsValid() bool {
	return int(op) < OpcodeCount
}

func (op Opcode) String() string {
	if !op.IsValid() {
		return fmt.Sprintf("opcode(%d)", uint8(op))
	}
	return opcodeTable[op].Mnemonic
}

// Masks used when splitting a Word into opcode/register/byte fields.
const (
	OpcodeMask    Word = 0x000F
	LowerByteMask Word = 0x00FF
	UpperByteMask Word = 0xFF00
)

// TypeI is the immediate-bearing encoding: opcode in bits 0-3, destination
// register in bits 4-7, an 8-bit immediate in bits 8-15.
type TypeI struct {
	Op   Opcode
	RDst RegisterId
	Imm8 Byte
}

// DecodeTypeI splits a raw instruction word into its TypeI fields.
func DecodeTypeI(w Word) TypeI {
	return TypeI{
		Op:   Opcode(w & OpcodeMask),
		RDst: RegisterId((w >> 4) & 0xF),
		Imm8: Byte(w >> 8),
	}
}

// Encode packs the TypeI fields back into a raw instruction word.
func (t TypeI) Encode() Word {
	return Word(t.Op)&OpcodeMask | Word(t.RDst&0xF)<<4 | Word(t.Imm8)<<8
}

// TypeR is the three-register encoding: opcode in bits 0-3, then three
// 4-bit register fields. Semantic roles of r1/r2/r3 depend on the opcode
// (see the ISA table in spec); the encoding itself is opcode-agnostic.
type TypeR struct {
	Op         Opcode
	R1, R2, R3 RegisterId
}

// DecodeTypeR splits a raw instruction word into its TypeR fields.
func DecodeTypeR(w Word) TypeR {
	return TypeR{
		Op: Opcode(w & OpcodeMask),
		R1: RegisterId((w >> 4) & 0xF),
		R2: RegisterId((w >> 8) & 0xF),
		R3: RegisterId((w >> 12) & 0xF),
	}
}

// Encode packs the TypeR fields back into a raw instruction word.
func (t TypeR) Encode() Word {
	return Word(t.Op)&OpcodeMask | Word(t.R1&0xF)<<4 | Word(t.R2&0xF)<<8 | Word(t.R3&0xF)<<12
}
