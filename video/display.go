//go:build !headless

package video

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// CellWidth and CellHeight are the on-screen pixel size of one text cell
// under basicfont.Face7x13.
const (
	CellWidth  = 8
	CellHeight = 16
)

// Display is an ebiten.Game that renders a FrameBuffer's text grid. It
// owns the UI thread (spec §5): the CPU goroutine only ever communicates
// with it through fb's SetByte/GetByte calls.
type Display struct {
	fb *FrameBuffer

	legend     string
	frameCount uint64
}

// NewDisplay creates a display backend for fb. legend is drawn in the
// bottom-left corner each frame (e.g. a trace-toggle hint).
func NewDisplay(fb *FrameBuffer, legend string) *Display {
	return &Display{fb: fb, legend: legend}
}

// Run blocks running the ebiten game loop until the window is closed.
func (d *Display) Run() error {
	ebiten.SetWindowSize(Columns*CellWidth, Rows*CellHeight)
	ebiten.SetWindowTitle("smolisa")
	ebiten.SetWindowResizable(true)
	return ebiten.RunGame(d)
}

// Update implements ebiten.Game. It signals Present on the framebuffer so
// any CPU instruction blocked on the vsync latch unblocks once per tick.
func (d *Display) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	d.fb.Present()
	d.frameCount++
	return nil
}

// Draw implements ebiten.Game, rendering the cell grid and the legend.
func (d *Display) Draw(screen *ebiten.Image) {
	cells, palette := d.fb.Snapshot()
	face := basicfont.Face7x13

	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			cell := cells[row*Columns+col]
			bg := paletteColor(palette, cell.Bg())
			x := float64(col * CellWidth)
			y := float64(row * CellHeight)
			ebitenutil.DrawRect(screen, x, y, CellWidth, CellHeight, bg)

			if cell.Code == 0 || cell.Code == ' ' {
				continue
			}
			fg := paletteColor(palette, cell.Fg())
			text.Draw(screen, string(rune(cell.Code)), face, int(x), int(y)+CellHeight-4, fg)
		}
	}

	if d.legend != "" {
		legendColor := color.RGBA{160, 160, 160, 255}
		text.Draw(screen, d.legend, face, 4, Rows*CellHeight-4, legendColor)
	}
}

// Layout implements ebiten.Game.
func (d *Display) Layout(_, _ int) (int, int) {
	return Columns * CellWidth, Rows * CellHeight
}

func paletteColor(palette [paletteLen]RGB, idx int) color.RGBA {
	entry := palette[idx]
	return color.RGBA{R: entry.R, G: entry.G, B: entry.B, A: 255}
}
