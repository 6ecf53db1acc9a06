// Package cpu implements the fetch/decode/execute dispatch loop: the
// register file, cycle accounting, and per-opcode semantics, running
// against an mmu.MMU for all memory traffic.
package cpu

import (
	"fmt"
	"time"

	"github.com/AsuMagic/smolisa-tools/isa"
	"github.com/AsuMagic/smolisa-tools/mmu"
	"github.com/AsuMagic/smolisa-tools/trace"
)

// AlignmentFault is raised when $ip is odd at dispatch entry.
type AlignmentFault struct{ Ip isa.Word }

func (e *AlignmentFault) Error() string {
	return fmt.Sprintf("alignment fault: $ip=%#04x is not 2-byte aligned", e.Ip)
}

// IllegalOpcode is raised when the fetched word's low nibble names no
// defined instruction.
type IllegalOpcode struct {
	Word isa.Word
	Op   isa.Opcode
}

func (e *IllegalOpcode) Error() string {
	return fmt.Sprintf("illegal opcode %#x in instruction word %#04x", e.Op, e.Word)
}

// SampleInterval is how often (in executed instructions) the performance
// sample in spec §4.4 is emitted.
const SampleInterval = 100_000

// Sample is one periodic performance measurement.
type Sample struct {
	Elapsed     time.Duration
	ExecutedOps uint64
	Cycles      uint64
	AvgCPI      float64
	AvgMHz      float64
}

// String renders a Sample exactly as the original core's boot loop logs
// it: "{elapsed:.3f}s: {ops:9} ins, {cycles:9} cycles, avg CPI {cpi:.3f},
// avg MHz {mhz:.3f}".
func (s Sample) String() string {
	return fmt.Sprintf("%.3fs: %9d ins, %9d cycles, avg CPI %.3f, avg MHz %.3f",
		s.Elapsed.Seconds(), s.ExecutedOps, s.Cycles, s.AvgCPI, s.AvgMHz)
}

// Core is the register file plus the counters needed for trace and
// performance sampling, bound to a single MMU.
type Core struct {
	Registers [isa.RegisterCount]isa.Word
	Cycles    uint64

	ExecutedOps uint64

	mmu     *mmu.MMU
	current trace.CurrentInstruction
	start   time.Time

	// OnSample, if set, is called every SampleInterval instructions
	// with a fresh performance Sample (spec §4.4).
	OnSample func(Sample)
}

// New creates a Core with all registers zeroed, wired to m.
func New(m *mmu.MMU) *Core {
	return &Core{mmu: m}
}

// DebugState renders the current register/instruction state in the
// given trace style.
func (c *Core) DebugState(style trace.Style) string {
	return trace.Render(style, c.Registers, c.current)
}

// Dispatch executes exactly one instruction: alignment check, fetch,
// advance, decode, execute, bank sync, and counting (spec §4.4 steps
// 1-7). It returns the first fault encountered, if any.
func (c *Core) Dispatch() error {
	ip := c.Registers[isa.Ip]
	if ip&1 != 0 {
		c.current = trace.CurrentInstruction{}
		return &AlignmentFault{Ip: ip}
	}

	word, err := c.mmu.GetWord(ip)
	if err != nil {
		c.current = trace.CurrentInstruction{}
		return err
	}
	c.current = trace.CurrentInstruction{Word: word, Ok: true}

	c.Registers[isa.Ip] = ip + 2

	op := isa.Opcode(word & isa.OpcodeMask)
	if !op.IsValid() {
		return &IllegalOpcode{Word: word, Op: op}
	}

	if err := c.execute(op, word); err != nil {
		return err
	}

	c.Cycles += op.Info().Cycles

	c.Registers[isa.Bank] = isa.Word(c.mmu.SetCurrentBank(mmu.Bank(c.Registers[isa.Bank])))

	c.ExecutedOps++

	return nil
}

// execute dispatches the decoded instruction to its semantics (spec §3).
func (c *Core) execute(op isa.Opcode, word isa.Word) error {
	switch op {
	case isa.Li:
		f := isa.DecodeTypeI(word)
		c.Registers[f.RDst] = (c.Registers[f.RDst] & isa.UpperByteMask) | isa.Word(f.Imm8)

	case isa.Liu:
		f := isa.DecodeTypeI(word)
		c.Registers[f.RDst] = (c.Registers[f.RDst] & isa.LowerByteMask) | isa.Word(f.Imm8)<<8

	case isa.Lb:
		f := isa.DecodeTypeR(word)
		raddr, rdst := f.R1, f.R2
		b, err := c.mmu.GetByte(c.Registers[raddr])
		if err != nil {
			return err
		}
		c.Registers[rdst] = (c.Registers[rdst] & isa.UpperByteMask) | isa.Word(b)

	case isa.Sb:
		f := isa.DecodeTypeR(word)
		raddr, rsrc := f.R1, f.R2
		if err := c.mmu.SetByte(c.Registers[raddr], isa.Byte(c.Registers[rsrc])); err != nil {
			return err
		}

	case isa.Lw:
		f := isa.DecodeTypeR(word)
		raddr, rdst := f.R1, f.R2
		w, err := c.mmu.GetWord(c.Registers[raddr])
		if err != nil {
			return err
		}
		c.Registers[rdst] = w

	case isa.Sw:
		f := isa.DecodeTypeR(word)
		raddr, rsrc := f.R1, f.R2
		if err := c.mmu.SetWord(c.Registers[raddr], c.Registers[rsrc]); err != nil {
			return err
		}

	case isa.Lrz:
		f := isa.DecodeTypeR(word)
		rdst, rsrc, rcond := f.R1, f.R2, f.R3
		if c.Registers[rcond] == 0 {
			c.Registers[rdst] = c.Registers[rsrc]
		}

	case isa.Lrnz:
		f := isa.DecodeTypeR(word)
		rdst, rsrc, rcond := f.R1, f.R2, f.R3
		if c.Registers[rcond] != 0 {
			c.Registers[rdst] = c.Registers[rsrc]
		}

	case isa.Add:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] + c.Registers[rb]

	case isa.Sub:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] - c.Registers[rb]

	case isa.And:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] & c.Registers[rb]

	case isa.Or:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] | c.Registers[rb]

	case isa.Xor:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] ^ c.Registers[rb]

	case isa.Shl:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] << (c.Registers[rb] & 0xF)

	case isa.Shr:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = c.Registers[ra] >> (c.Registers[rb] & 0xF)

	case isa.Swb:
		f := isa.DecodeTypeR(word)
		rdst, ra, rb := f.R1, f.R2, f.R3
		c.Registers[rdst] = (c.Registers[ra]&isa.UpperByteMask)>>8 | (c.Registers[rb]&isa.LowerByteMask)<<8

	default:
		return &IllegalOpcode{Word: word, Op: op}
	}

	return nil
}

// Step runs Dispatch once and, if due, invokes OnSample — the unit both
// Boot and a caller driving its own loop (e.g. to interleave a trace
// toggle) can share.
func (c *Core) Step() error {
	if c.start.IsZero() {
		c.start = time.Now()
	}

	if err := c.Dispatch(); err != nil {
		return err
	}

	if c.OnSample != nil && c.ExecutedOps%SampleInterval == 0 {
		elapsed := time.Since(c.start)
		c.OnSample(Sample{
			Elapsed:     elapsed,
			ExecutedOps: c.ExecutedOps,
			Cycles:      c.Cycles,
			AvgCPI:      float64(c.Cycles) / float64(c.ExecutedOps),
			AvgMHz:      (1.0e-6 * float64(c.Cycles)) / elapsed.Seconds(),
		})
	}

	return nil
}

// Boot runs the dispatch loop forever, emitting a Sample via OnSample
// every SampleInterval instructions, until Dispatch returns an error.
func (c *Core) Boot() error {
	for {
		if err := c.Step(); err != nil {
			return err
		}
	}
}
