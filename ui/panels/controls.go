package panels

import (
	"errors"
	"log"

	"mi-bci/internal/app"
	"mi-bci/internal/presenter"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	prevLabel = "◀ Previous Trial"
	nextLabel = "Next Trial ▶"
)

// ControlPanel holds the classifier choice, trial navigation and the
// trial info text.
type ControlPanel struct {
	state     *app.State
	container fyne.CanvasObject

	classifier *widget.RadioGroup
	prevButton *widget.Button
	nextButton *widget.Button
	info       *widget.Label
	extraction *widget.Label
}

// NewControlPanel creates a control panel bound to state.
func NewControlPanel(state *app.State) *ControlPanel {
	cp := &ControlPanel{state: state}

	cp.info = widget.NewLabel("No results")
	cp.info.Wrapping = fyne.TextWrapWord
	cp.extraction = widget.NewLabel("")
	cp.extraction.Wrapping = fyne.TextWrapWord

	cp.classifier = widget.NewRadioGroup([]string{"SVM", "LDA"}, func(name string) {
		if name == "" {
			return
		}
		if err := state.SelectClassifier(name); err != nil && !errors.Is(err, app.ErrNoResult) {
			log.Printf("Select classifier %s: %v", name, err)
		}
	})
	cp.classifier.Horizontal = true
	cp.classifier.Required = true
	cp.classifier.Selected = "SVM"

	cp.prevButton = widget.NewButton(prevLabel, func() { state.PrevTrial() })
	cp.nextButton = widget.NewButton(nextLabel, func() { state.NextTrial() })

	cp.container = container.NewVBox(
		widget.NewLabelWithStyle("Classifier", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		cp.classifier,
		widget.NewSeparator(),
		container.NewGridWithColumns(2, cp.prevButton, cp.nextButton),
		cp.info,
		widget.NewSeparator(),
		cp.extraction,
	)
	cp.SetPresenter(nil)
	return cp
}

// Container returns the panel container.
func (cp *ControlPanel) Container() fyne.CanvasObject {
	return cp.container
}

// SetPresenter resets the panel for a new result. A nil presenter disables navigation.
func (cp *ControlPanel) SetPresenter(p *presenter.Presenter) {
	if p == nil {
		cp.info.SetText("No results")
		cp.extraction.SetText("")
		cp.prevButton.Disable()
		cp.nextButton.Disable()
		cp.classifier.Disable()
		return
	}
	cp.classifier.Enable()
	cp.classifier.SetSelected(p.Classifier())
	cp.extraction.SetText(extractionSummary(p))
	cp.Update(p)
}

// Update refreshes the info text and button states from p.
func (cp *ControlPanel) Update(p *presenter.Presenter) {
	cp.info.SetText(p.View().InfoText())
	if p.HasPrev() {
		cp.prevButton.Enable()
	} else {
		cp.prevButton.Disable()
	}
	if p.HasNext() {
		cp.nextButton.Enable()
	} else {
		cp.nextButton.Disable()
	}
}

// Info returns the current info text.
func (cp *ControlPanel) Info() string {
	return cp.info.Text
}

func extractionSummary(p *presenter.Presenter) string {
	res := p.Result()
	text := "CSP filters:"
	for i, c := range res.Extraction {
		name := res.Mapping.Value(i)
		if i < len(res.LabelNames) {
			name = res.LabelNames[i]
		}
		text += "\n  " + name + ": " + c.Outcome.String()
	}
	return text
}
