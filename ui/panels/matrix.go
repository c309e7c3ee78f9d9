// Package panels provides UI panels for the application.
package panels

import (
	"image"
	"log"

	"mi-bci/internal/pipeline"
	"mi-bci/internal/report"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// MatrixPanel shows the confusion matrices of the last run side by side.
type MatrixPanel struct {
	container   *fyne.Container
	image       *canvas.Image
	placeholder *widget.Label
	scale       int
	rendered    image.Image
}

// NewMatrixPanel creates an empty matrix panel. scale is the integer
// upscaling applied to the rendered heatmaps.
func NewMatrixPanel(scale int) *MatrixPanel {
	if scale < 1 {
		scale = 1
	}
	mp := &MatrixPanel{
		placeholder: widget.NewLabel("Open a recording and run training to see results"),
		scale:       scale,
	}
	mp.placeholder.Alignment = fyne.TextAlignCenter

	mp.image = canvas.NewImageFromImage(nil)
	mp.image.FillMode = canvas.ImageFillContain
	mp.image.ScaleMode = canvas.ImageScalePixels
	mp.image.SetMinSize(fyne.NewSize(640, 300))
	mp.image.Hide()

	mp.container = container.NewStack(mp.placeholder, mp.image)
	return mp
}

// Container returns the panel container.
func (mp *MatrixPanel) Container() fyne.CanvasObject {
	return mp.container
}

// SetResult renders the heatmaps of res. A nil result clears the panel.
func (mp *MatrixPanel) SetResult(res *pipeline.Result) {
	if res == nil {
		mp.rendered = nil
		mp.image.Hide()
		mp.placeholder.Show()
		return
	}
	img, err := report.Combined(res, mp.scale)
	if err != nil {
		log.Printf("Render confusion matrices: %v", err)
		mp.placeholder.SetText(err.Error())
		return
	}
	mp.rendered = img
	mp.image.Image = img
	mp.placeholder.Hide()
	mp.image.Show()
	mp.image.Refresh()
}

// Image returns the last rendered heatmaps, or nil.
func (mp *MatrixPanel) Image() image.Image {
	return mp.rendered
}
