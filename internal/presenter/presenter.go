// Package presenter holds the trial browser state shown by the GUI: which
// classifier is selected and which held-out trial is on screen.
package presenter

import (
	"errors"
	"fmt"
	"strings"

	"mi-bci/internal/labels"
	"mi-bci/internal/pipeline"
)

var (
	// ErrNoTrials is returned for a result without held-out trials.
	ErrNoTrials = errors.New("result has no held-out trials")

	// ErrUnknownClassifier is returned by Select for a name not in the result.
	ErrUnknownClassifier = errors.New("unknown classifier")
)

// Presenter is a cursor over (classifier, trial).
type Presenter struct {
	result  *pipeline.Result
	models  []*pipeline.ModelResult
	classes []labels.Class

	model int
	trial int
}

// New validates the result bundle and positions the cursor on the first
// trial of the first classifier.
func New(res *pipeline.Result) (*Presenter, error) {
	if res == nil || len(res.TestLabels) == 0 {
		return nil, ErrNoTrials
	}
	k := res.Mapping.Len()
	if err := labels.ValidateNames(res.LabelNames, k); err != nil {
		return nil, err
	}
	p := &Presenter{
		result:  res,
		models:  res.Models(),
		classes: labels.Classes(res.Mapping),
	}
	for _, m := range p.models {
		if len(m.Predictions) != len(res.TestLabels) {
			return nil, fmt.Errorf("%s: %d predictions for %d trials", m.Name, len(m.Predictions), len(res.TestLabels))
		}
	}
	return p, nil
}

// Result returns the underlying bundle.
func (p *Presenter) Result() *pipeline.Result {
	return p.result
}

// Classifiers lists the selectable classifier names.
func (p *Presenter) Classifiers() []string {
	names := make([]string, len(p.models))
	for i, m := range p.models {
		names[i] = m.Name
	}
	return names
}

// Classifier returns the selected classifier's name.
func (p *Presenter) Classifier() string {
	return p.models[p.model].Name
}

// Model returns the selected classifier's result.
func (p *Presenter) Model() *pipeline.ModelResult {
	return p.models[p.model]
}

// Select switches classifier, keeping the trial position.
func (p *Presenter) Select(name string) error {
	for i, m := range p.models {
		if m.Name == name {
			p.model = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownClassifier, name)
}

// Trial is the zero-based index of the current trial.
func (p *Presenter) Trial() int {
	return p.trial
}

// Trials is the number of held-out trials.
func (p *Presenter) Trials() int {
	return len(p.result.TestLabels)
}

// HasNext reports whether Next would move.
func (p *Presenter) HasNext() bool {
	return p.trial < p.Trials()-1
}

// HasPrev reports whether Prev would move.
func (p *Presenter) HasPrev() bool {
	return p.trial > 0
}

// Next advances one trial and reports whether the cursor moved.
func (p *Presenter) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.trial++
	return true
}

// Prev goes back one trial and reports whether the cursor moved.
func (p *Presenter) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.trial--
	return true
}

// Seek moves to trial i, clamped to the valid range.
func (p *Presenter) Seek(i int) {
	p.trial = max(0, min(i, p.Trials()-1))
}

// Classes returns the display classes in dense index order.
func (p *Presenter) Classes() []labels.Class {
	return p.classes
}

// TrialView is everything shown for the current trial.
type TrialView struct {
	Trial      int // one-based
	Trials     int
	Epoch      int // index of the epoch in the loaded dataset
	True       int
	Predicted  int
	TrueName   string
	PredName   string
	Classifier string
	Accuracy   float64
	Glyph      string
	Position   labels.Position
}

// Correct reports whether the prediction matches the true class.
func (v TrialView) Correct() bool {
	return v.True == v.Predicted
}

// InfoText is the multi-line trial summary.
func (v TrialView) InfoText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trial: %d of %d\n", v.Trial, v.Trials)
	fmt.Fprintf(&b, "True class: %s\n", v.TrueName)
	fmt.Fprintf(&b, "Predicted: %s\n", v.PredName)
	fmt.Fprintf(&b, "Classifier: %s (Accuracy: %.2f%%)", v.Classifier, v.Accuracy*100)
	return b.String()
}

// View describes the current trial under the selected classifier.
func (p *Presenter) View() TrialView {
	m := p.Model()
	truth := p.result.TestLabels[p.trial]
	pred := m.Predictions[p.trial]
	v := TrialView{
		Trial:      p.trial + 1,
		Trials:     p.Trials(),
		Epoch:      -1,
		True:       truth,
		Predicted:  pred,
		TrueName:   p.result.LabelNames[truth],
		PredName:   p.result.LabelNames[pred],
		Classifier: m.Name,
		Accuracy:   m.Accuracy,
		Glyph:      p.classes[pred].Glyph,
		Position:   p.classes[pred].Position,
	}
	if p.trial < len(p.result.TestIndices) {
		v.Epoch = p.result.TestIndices[p.trial]
	}
	return v
}

// Arrow is one slot of the arrow cross.
type Arrow struct {
	Class       labels.Class
	Index       int // dense class index
	Highlighted bool
}

// Arrows returns one arrow per class with a glyph, highlighting the
// predicted class of the current trial.
func (p *Presenter) Arrows() []Arrow {
	pred := p.Model().Predictions[p.trial]
	var out []Arrow
	for i, c := range p.classes {
		if c.Glyph == "" {
			continue
		}
		out = append(out, Arrow{Class: c, Index: i, Highlighted: i == pred})
	}
	return out
}
