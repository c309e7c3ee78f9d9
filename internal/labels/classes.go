package labels

import "strings"

// Position is where a class arrow sits in the display cross.
type Position int

const (
	PositionLeft Position = iota
	PositionRight
	PositionUp
	PositionDown
)

func (p Position) String() string {
	switch p {
	case PositionLeft:
		return "left"
	case PositionRight:
		return "right"
	case PositionUp:
		return "up"
	case PositionDown:
		return "down"
	default:
		return "unknown"
	}
}

// Class describes how a motor-imagery class is shown to the user.
type Class struct {
	Name     string   // display name, e.g. "Left Hand"
	Caption  string   // caption under the arrow
	Glyph    string   // arrow character
	Position Position // slot in the arrow cross
}

var (
	leftHand  = Class{Name: "Left Hand", Caption: "LEFT HAND", Glyph: "←", Position: PositionLeft}
	rightHand = Class{Name: "Right Hand", Caption: "RIGHT HAND", Glyph: "→", Position: PositionRight}
	foot      = Class{Name: "Foot", Caption: "FOOT", Glyph: "↓", Position: PositionDown}
	tongue    = Class{Name: "Tongue", Caption: "TONGUE", Glyph: "↑", Position: PositionUp}
)

// classTable is keyed by recorded label value. BCI Competition IV 2a
// encodes the classes as text in the CSV export, as 1-4 in the class
// vectors, and as event codes 769-772 in the GDF files.
var classTable = map[string]Class{
	"left":   leftHand,
	"right":  rightHand,
	"foot":   foot,
	"feet":   foot,
	"tongue": tongue,

	"1": leftHand,
	"2": rightHand,
	"3": foot,
	"4": tongue,

	"769": leftHand,
	"770": rightHand,
	"771": foot,
	"772": tongue,
}

// Lookup returns the display class for a recorded label value.
func Lookup(value string) (Class, bool) {
	c, ok := classTable[strings.ToLower(strings.TrimSpace(value))]
	return c, ok
}

// Classes returns the display class for every dense index of m. Values
// missing from the table get their raw value as name and no glyph.
func Classes(m *Mapping) []Class {
	out := make([]Class, m.Len())
	for i := range out {
		if c, ok := Lookup(m.Value(i)); ok {
			out[i] = c
			continue
		}
		v := m.Value(i)
		out[i] = Class{Name: v, Caption: strings.ToUpper(v), Position: -1}
	}
	return out
}

// DefaultNames returns display names for every dense index of m.
func DefaultNames(m *Mapping) []string {
	classes := Classes(m)
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.Name
	}
	return names
}
