// Package video implements the framebuffer peripheral: an 80x25 text-cell
// display with a 16-entry palette and a vsync-wait latch, mapped into one
// MMU bank, plus an ebiten-backed display surface that renders it and an
// x/term-backed raw keypress reader for the emulator CLI's trace toggle.
package video

import (
	"fmt"
	"sync"

	"github.com/AsuMagic/smolisa-tools/isa"
)

// Columns and Rows are the fixed text-mode grid dimensions.
const (
	Columns = 80
	Rows    = 25

	cellCount  = Columns * Rows
	cellBytes  = 2 // char_code, palette_nibbles
	paletteLen = 16
)

// Address layout within the framebuffer's bank (spec §4.3 / §3).
const (
	CellBase    isa.Word = 0x0000
	CellEnd     isa.Word = CellBase + isa.Word(cellCount*cellBytes) - 1 // 0x0F9F
	PaletteBase isa.Word = 0x0FA0
	PaletteEnd  isa.Word = PaletteBase + isa.Word(paletteLen*3) - 1 // 0x0FCF
	VsyncLatch  isa.Word = 0x0FD0
)

// RGB is one palette entry.
type RGB struct {
	R, G, B isa.Byte
}

// OutOfRangeAccess is returned for addresses past the peripheral's own
// mapped region within its bank (0x0000..0x0FD0); the MMU only ever
// forwards addresses inside that bank, but the region the peripheral
// itself understands is smaller.
type OutOfRangeAccess struct{ Addr isa.Word }

func (e *OutOfRangeAccess) Error() string {
	return fmt.Sprintf("framebuffer: address %#04x is outside the mapped region", e.Addr)
}

// Cell is one text-mode character cell: a code point and packed
// foreground/background palette indices (spec's "char_code,
// palette_nibbles", §4.3).
type Cell struct {
	Code isa.Byte
	Attr isa.Byte // fg = Attr&0xF, bg = Attr>>4
}

// Fg and Bg split Attr into its two palette indices.
func (c Cell) Fg() int { return int(c.Attr & 0x0F) }
func (c Cell) Bg() int { return int(c.Attr >> 4) }

// FrameBuffer is the peripheral the MMU forwards one bank's reads/writes
// to. It implements mmu.Peripheral. All state is guarded by mu so that the
// CPU goroutine and a display backend's render goroutine can share it
// safely (spec §5: the peripheral owns its own synchronization).
type FrameBuffer struct {
	mu      sync.Mutex
	cells   [cellCount]Cell
	palette [paletteLen]RGB
	dirty   bool

	vsync chan struct{}
}

// New creates an empty framebuffer with an all-black palette.
func New() *FrameBuffer {
	return &FrameBuffer{vsync: make(chan struct{})}
}

// GetByte implements mmu.Peripheral.
func (f *FrameBuffer) GetByte(addr isa.Word) (isa.Byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case addr >= CellBase && addr <= CellEnd:
		idx := int(addr-CellBase) / cellBytes
		if (addr-CellBase)%cellBytes == 0 {
			return f.cells[idx].Code, nil
		}
		return f.cells[idx].Attr, nil

	case addr >= PaletteBase && addr <= PaletteEnd:
		idx := int(addr - PaletteBase)
		entry := f.palette[idx/3]
		switch idx % 3 {
		case 0:
			return entry.R, nil
		case 1:
			return entry.G, nil
		default:
			return entry.B, nil
		}

	case addr == VsyncLatch:
		return 0, nil

	default:
		return 0, &OutOfRangeAccess{Addr: addr}
	}
}

// SetByte implements mmu.Peripheral. A write to VsyncLatch blocks until
// the next frame is presented (spec §4.3, §5).
func (f *FrameBuffer) SetByte(addr isa.Word, b isa.Byte) error {
	f.mu.Lock()

	switch {
	case addr >= CellBase && addr <= CellEnd:
		idx := int(addr-CellBase) / cellBytes
		if (addr-CellBase)%cellBytes == 0 {
			f.cells[idx].Code = b
		} else {
			f.cells[idx].Attr = b
		}
		f.dirty = true
		f.mu.Unlock()
		return nil

	case addr >= PaletteBase && addr <= PaletteEnd:
		idx := int(addr - PaletteBase)
		entry := &f.palette[idx/3]
		switch idx % 3 {
		case 0:
			entry.R = b
		case 1:
			entry.G = b
		default:
			entry.B = b
		}
		f.dirty = true
		f.mu.Unlock()
		return nil

	case addr == VsyncLatch:
		vsync := f.vsync
		f.mu.Unlock()
		<-vsync
		return nil

	default:
		f.mu.Unlock()
		return &OutOfRangeAccess{Addr: addr}
	}
}

// Present signals one completed frame to any CPU blocked on the
// vsync-wait latch. A display backend calls this once per render tick.
func (f *FrameBuffer) Present() {
	f.mu.Lock()
	f.dirty = false
	vsync := f.vsync
	f.mu.Unlock()

	select {
	case vsync <- struct{}{}:
	default:
	}
}

// Snapshot copies the current cell grid and palette out for rendering,
// without holding the peripheral's lock across the caller's draw work.
func (f *FrameBuffer) Snapshot() (cells [cellCount]Cell, palette [paletteLen]RGB) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells, f.palette
}

// Dirty reports whether any cell or palette entry changed since the last
// Present.
func (f *FrameBuffer) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}
