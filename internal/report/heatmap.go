// Package report renders run results: the text summary printed after
// training and confusion-matrix heatmaps.
package report

import (
	"fmt"
	"image"
	"image/color"

	"mi-bci/internal/classify"
	"mi-bci/internal/pipeline"
	"mi-bci/pkg/colorutil"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	margin     = 8
	titleH     = 22
	labelGap   = 6
	minCell    = 44
	axisLabelH = 24
)

var face = basicfont.Face7x13

// layout positions the parts of a heatmap in unscaled pixels.
type layout struct {
	left, top     int // grid origin
	cell          int
	width, height int
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

func layoutFor(names []string, title string) layout {
	nameW := 0
	for _, n := range names {
		nameW = max(nameW, textWidth(n))
	}
	l := layout{cell: max(minCell, nameW+labelGap)}
	// The vertical "True label" column sits left of the row names.
	l.left = margin + face.Width + labelGap + nameW + labelGap
	l.top = margin + titleH + face.Height + labelGap
	k := len(names)
	l.width = max(l.left+k*l.cell+margin, textWidth(title)+2*margin)
	l.height = l.top + k*l.cell + axisLabelH + margin
	return l
}

// Heatmap draws cm with the Blues colormap, annotated with counts and
// class names. scale enlarges the image by an integer factor.
func Heatmap(cm classify.Confusion, names []string, title string, scale int) (*image.RGBA, error) {
	k := len(cm)
	if k == 0 {
		return nil, fmt.Errorf("empty confusion matrix")
	}
	if len(names) != k {
		return nil, fmt.Errorf("%d names for %d classes", len(names), k)
	}
	if scale < 1 {
		scale = 1
	}

	l := layoutFor(names, title)
	img := image.NewRGBA(image.Rect(0, 0, l.width, l.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorutil.White), image.Point{}, draw.Src)

	peak := 0
	for _, row := range cm {
		for _, v := range row {
			peak = max(peak, v)
		}
	}

	drawText(img, title, (l.width-textWidth(title))/2, margin+face.Ascent, colorutil.Black)
	for i := 0; i < k; i++ {
		y := l.top + i*l.cell
		for j := 0; j < k; j++ {
			x := l.left + j*l.cell
			bg := colorutil.Blues(0)
			if peak > 0 {
				bg = colorutil.Blues(float64(cm[i][j]) / float64(peak))
			}
			cell := image.Rect(x, y, x+l.cell, y+l.cell)
			draw.Draw(img, cell, image.NewUniform(bg), image.Point{}, draw.Src)

			count := fmt.Sprint(cm[i][j])
			drawText(img, count, x+(l.cell-textWidth(count))/2, y+(l.cell+face.Ascent)/2, colorutil.TextOn(bg))
		}
		// Row names are right aligned against the grid.
		drawText(img, names[i], l.left-labelGap-textWidth(names[i]), y+(l.cell+face.Ascent)/2, colorutil.Black)
	}
	for j, n := range names {
		x := l.left + j*l.cell + (l.cell-textWidth(n))/2
		drawText(img, n, x, l.top-labelGap-face.Descent, colorutil.Black)
	}

	xlabel := "Predicted label"
	gridW := k * l.cell
	drawText(img, xlabel, l.left+(gridW-textWidth(xlabel))/2, l.top+gridW+axisLabelH-labelGap, colorutil.Black)
	drawVertical(img, "True label", margin, l.top+gridW/2, colorutil.Black)

	if scale == 1 {
		return img, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, l.width*scale, l.height*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out, nil
}

// ModelHeatmap draws one classifier's confusion matrix titled with its accuracy.
func ModelHeatmap(m *pipeline.ModelResult, names []string, scale int) (*image.RGBA, error) {
	title := fmt.Sprintf("%s Confusion Matrix (Acc: %.4f)", m.Name, m.Accuracy)
	return Heatmap(m.Confusion, names, title, scale)
}

// Combined places the heatmaps of every model side by side.
func Combined(res *pipeline.Result, scale int) (*image.RGBA, error) {
	var parts []*image.RGBA
	width, height := 0, 0
	for _, m := range res.Models() {
		img, err := ModelHeatmap(m, res.LabelNames, scale)
		if err != nil {
			return nil, fmt.Errorf("%s heatmap: %w", m.Name, err)
		}
		parts = append(parts, img)
		width += img.Bounds().Dx()
		height = max(height, img.Bounds().Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(colorutil.White), image.Point{}, draw.Src)
	x := 0
	for _, p := range parts {
		r := p.Bounds().Add(image.Pt(x, 0))
		draw.Draw(out, r, p, image.Point{}, draw.Src)
		x += p.Bounds().Dx()
	}
	return out, nil
}

func drawText(dst draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawVertical stacks the characters of s centred on y.
func drawVertical(dst draw.Image, s string, x, y int, c color.Color) {
	y -= len(s) * face.Height / 2
	for i, r := range s {
		drawText(dst, string(r), x, y+i*face.Height+face.Ascent, c)
	}
}
