// Package trace renders CPU register/instruction state for debugging,
// in the two styles the original emulator core supports: a multiline
// human-readable dump, and a tab-separated oneline stream suitable for
// piping into a log.
package trace

import (
	"fmt"
	"strings"

	"github.com/AsuMagic/smolisa-tools/isa"
)

// Style selects how Render joins register fields.
type Style int

const (
	Multiline Style = iota
	Oneline
)

// CurrentInstruction carries the last fetched instruction word for
// rendering, or absence if no word was fetched (before the first
// dispatch, or after an alignment or fetch fault).
type CurrentInstruction struct {
	Word isa.Word
	Ok   bool
}

// Render renders the register file and, if present, the current
// instruction word, in the given style.
func Render(style Style, registers [isa.RegisterCount]isa.Word, current CurrentInstruction) string {
	multiline := style == Multiline
	separator := "\t\t"
	if multiline {
		separator = "\n"
	}

	var b strings.Builder
	if multiline {
		b.WriteString("\nRegister dump:\n")
	}

	for i := 0; i < isa.RegisterCount; i++ {
		name := isa.RegisterId(i).TraceName()
		fmt.Fprintf(&b, "$%-4s: 0x%04x%s", name, registers[i], separator)
	}

	if current.Ok {
		fmt.Fprintf(&b, "opcode: 0x%04x%s", current.Word, separator)
	} else {
		fmt.Fprintf(&b, "opcode: failed%s", separator)
	}

	return b.String()
}
