package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// BCITheme is the application theme: blue accents matching the confusion
// matrix colormap and a red selection matching the highlighted arrow.
type BCITheme struct{}

var _ fyne.Theme = (*BCITheme)(nil)

func (t *BCITheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x21, G: 0x71, B: 0xB5, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0x60}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x2E, G: 0x7D, B: 0x32, A: 0xFF}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *BCITheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *BCITheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *BCITheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameHeadingText:
		return 28 // arrow glyphs
	default:
		return theme.DefaultTheme().Size(name)
	}
}
