// Command smolisa-as assembles a smolisa source file into a raw byte
// image written to standard output (spec §6).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/AsuMagic/smolisa-tools/asm"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <source-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "smolisa-as: %v\n", err)
		os.Exit(1)
	}

	assembled, err := asm.Assemble(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "smolisa-as: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stdout.Write(assembled.ProgramOutput); err != nil {
		fmt.Fprintf(os.Stderr, "smolisa-as: %v\n", err)
		os.Exit(1)
	}
}
