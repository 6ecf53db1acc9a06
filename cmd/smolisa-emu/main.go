// Command smolisa-emu loads a smolisa byte image into bank 0 and boots
// the dispatch loop (spec §6). When a framebuffer bank is configured, it
// also owns the ebiten display backend. An x/term-driven trace toggle is
// attached whenever stdin can be put into raw mode.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/AsuMagic/smolisa-tools/cpu"
	"github.com/AsuMagic/smolisa-tools/mmu"
	"github.com/AsuMagic/smolisa-tools/trace"
	"github.com/AsuMagic/smolisa-tools/video"
)

func main() {
	banks := flag.Int("banks", 2, "number of 64 KiB memory banks")
	fbBank := flag.Int("fb-bank", 1, "bank the framebuffer peripheral is mapped to (spec §6, -1 to disable)")
	traceStyle := flag.String("trace", "", "start with streaming trace output: \"multiline\" or \"oneline\"")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "smolisa-emu: %v\n", err)
		os.Exit(1)
	}

	m := mmu.New(*banks)
	m.LoadImage(0, image)

	var fb *video.FrameBuffer
	if *fbBank >= 0 {
		fb = video.New()
		m.AttachPeripheral(mmu.Bank(*fbBank), fb)
	}

	core := cpu.New(m)

	style := trace.Multiline
	streaming := false
	switch *traceStyle {
	case "":
	case "multiline":
		streaming = true
	case "oneline":
		style = trace.Oneline
		streaming = true
	default:
		fmt.Fprintf(os.Stderr, "smolisa-emu: unknown -trace value %q\n", *traceStyle)
		os.Exit(1)
	}

	toggle, err := video.NewTraceToggle()
	if err == nil {
		defer toggle.Stop()
	}

	core.OnSample = func(s cpu.Sample) {
		fmt.Fprintln(os.Stderr, s.String())
	}

	runLoop := func() error {
		for {
			if toggle != nil {
				if key, ok := toggle.Pressed(); ok && (key == 't' || key == 'T') {
					streaming = !streaming
				}
			}
			if err := core.Step(); err != nil {
				return err
			}
			if streaming {
				fmt.Fprintln(os.Stderr, core.DebugState(style))
			}
		}
	}

	if fb == nil {
		if err := runLoop(); err != nil {
			fmt.Fprintf(os.Stderr, "smolisa-emu: %v\n", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		if err := runLoop(); err != nil {
			fmt.Fprintf(os.Stderr, "smolisa-emu: %v\n", err)
			os.Exit(1)
		}
	}()

	display := video.NewDisplay(fb, "press t for trace")
	if err := display.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "smolisa-emu: %v\n", err)
		os.Exit(1)
	}
}
