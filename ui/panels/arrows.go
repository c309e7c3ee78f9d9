package panels

import (
	"image/color"

	"mi-bci/internal/labels"
	"mi-bci/internal/presenter"
	"mi-bci/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
)

const glyphSize = 48

// crossSlot returns the grid cell (row, col) of a position in the 3×3
// arrow cross, or ok=false for classes without a slot.
func crossSlot(p labels.Position) (row, col int, ok bool) {
	switch p {
	case labels.PositionUp:
		return 0, 1, true
	case labels.PositionLeft:
		return 1, 0, true
	case labels.PositionRight:
		return 1, 2, true
	case labels.PositionDown:
		return 2, 1, true
	}
	return 0, 0, false
}

func arrowColor(highlighted bool) color.Color {
	if highlighted {
		return colorutil.Red
	}
	return colorutil.LightGray
}

// arrowCell is one slot of the cross: a glyph above its caption.
type arrowCell struct {
	glyph   *canvas.Text
	caption *canvas.Text
	box     *fyne.Container
}

func newArrowCell() *arrowCell {
	c := &arrowCell{
		glyph:   canvas.NewText("", colorutil.LightGray),
		caption: canvas.NewText("", colorutil.LightGray),
	}
	c.glyph.TextSize = glyphSize
	c.glyph.Alignment = fyne.TextAlignCenter
	c.caption.TextSize = theme.TextSize()
	c.caption.Alignment = fyne.TextAlignCenter
	c.box = container.NewVBox(c.glyph, c.caption)
	return c
}

func (c *arrowCell) set(glyph, caption string, col color.Color, bold bool) {
	c.glyph.Text = glyph
	c.glyph.Color = col
	c.caption.Text = caption
	c.caption.Color = col
	c.caption.TextStyle = fyne.TextStyle{Bold: bold}
	c.glyph.Refresh()
	c.caption.Refresh()
}

// ArrowPanel draws the motor-imagery classes as an arrow cross with the
// predicted class highlighted.
type ArrowPanel struct {
	container *fyne.Container
	cells     [3][3]*arrowCell
	center    *canvas.Text
	current   string
}

// NewArrowPanel creates an empty cross.
func NewArrowPanel() *ArrowPanel {
	ap := &ArrowPanel{}
	grid := container.New(layout.NewGridLayout(3))
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r == 1 && c == 1 {
				ap.center = canvas.NewText("+", colorutil.LightGray)
				ap.center.TextSize = glyphSize
				ap.center.Alignment = fyne.TextAlignCenter
				grid.Add(container.NewCenter(ap.center))
				continue
			}
			cell := newArrowCell()
			ap.cells[r][c] = cell
			grid.Add(cell.box)
		}
	}
	ap.container = container.NewCenter(grid)
	return ap
}

// Container returns the panel container.
func (ap *ArrowPanel) Container() fyne.CanvasObject {
	return ap.container
}

// SetArrows redraws the cross. Slots without an arrow are blank.
func (ap *ArrowPanel) SetArrows(arrows []presenter.Arrow) {
	for r := range ap.cells {
		for _, cell := range ap.cells[r] {
			if cell != nil {
				cell.set("", "", colorutil.LightGray, false)
			}
		}
	}
	ap.current = ""
	for _, a := range arrows {
		r, c, ok := crossSlot(a.Class.Position)
		if !ok {
			continue
		}
		if a.Highlighted {
			ap.current = a.Class.Caption
		}
		ap.cells[r][c].set(a.Class.Glyph, a.Class.Caption, arrowColor(a.Highlighted), a.Highlighted)
	}
}

// Highlighted returns the caption of the highlighted arrow, or "".
func (ap *ArrowPanel) Highlighted() string {
	return ap.current
}
