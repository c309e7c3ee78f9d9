package presenter

import (
	"testing"

	"mi-bci/internal/labels"
	"mi-bci/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	m, err := labels.NewMapping([]string{"left", "right", "foot", "tongue"})
	require.NoError(t, err)
	return &pipeline.Result{
		Mapping:     m,
		LabelNames:  labels.DefaultNames(m),
		TestIndices: []int{3, 8, 11},
		TestLabels:  []int{0, 1, 3},
		SVM:         pipeline.ModelResult{Name: "SVM", Predictions: []int{0, 2, 3}, Accuracy: 2.0 / 3},
		LDA:         pipeline.ModelResult{Name: "LDA", Predictions: []int{3, 1, 3}, Accuracy: 0.5},
	}
}

func TestNavigationIsBounded(t *testing.T) {
	p, err := New(testResult(t))
	require.NoError(t, err)

	assert.Equal(t, 0, p.Trial())
	assert.False(t, p.HasPrev())
	assert.False(t, p.Prev())
	assert.True(t, p.Next())
	assert.True(t, p.Next())
	assert.Equal(t, 2, p.Trial())
	assert.False(t, p.Next())
	assert.Equal(t, 2, p.Trial())
	assert.True(t, p.Prev())
	assert.Equal(t, 1, p.Trial())

	p.Seek(10)
	assert.Equal(t, 2, p.Trial())
	p.Seek(-4)
	assert.Equal(t, 0, p.Trial())
}

func TestSelectClassifier(t *testing.T) {
	p, err := New(testResult(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"SVM", "LDA"}, p.Classifiers())
	assert.Equal(t, "SVM", p.Classifier())

	p.Next()
	require.NoError(t, p.Select("LDA"))
	assert.Equal(t, "LDA", p.Classifier())
	assert.Equal(t, 1, p.Trial())

	assert.ErrorIs(t, p.Select("kNN"), ErrUnknownClassifier)
	assert.Equal(t, "LDA", p.Classifier())
}

func TestViewAndInfoText(t *testing.T) {
	p, err := New(testResult(t))
	require.NoError(t, err)
	p.Next()

	v := p.View()
	assert.Equal(t, 2, v.Trial)
	assert.Equal(t, 3, v.Trials)
	assert.Equal(t, 8, v.Epoch)
	assert.False(t, v.Correct())
	// Dense order is foot, left, right, tongue.
	assert.Equal(t, "Left Hand", v.TrueName)
	assert.Equal(t, "Right Hand", v.PredName)
	assert.Equal(t, "→", v.Glyph)
	assert.Equal(t, labels.PositionRight, v.Position)

	want := "Trial: 2 of 3\nTrue class: Left Hand\nPredicted: Right Hand\nClassifier: SVM (Accuracy: 66.67%)"
	assert.Equal(t, want, v.InfoText())

	require.NoError(t, p.Select("LDA"))
	v = p.View()
	assert.True(t, v.Correct())
	assert.Contains(t, v.InfoText(), "Classifier: LDA (Accuracy: 50.00%)")
}

func TestArrowsHighlightPrediction(t *testing.T) {
	p, err := New(testResult(t))
	require.NoError(t, err)

	arrows := p.Arrows()
	require.Len(t, arrows, 4)
	glyphs := make([]string, len(arrows))
	for i, a := range arrows {
		glyphs[i] = a.Class.Glyph
		assert.Equal(t, i == 0, a.Highlighted, "arrow %d", i)
	}
	assert.Equal(t, []string{"↓", "←", "→", "↑"}, glyphs)

	p.Seek(2)
	for _, a := range p.Arrows() {
		assert.Equal(t, a.Class.Name == "Tongue", a.Highlighted)
	}
}

func TestNewRejectsBadBundles(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoTrials)

	res := testResult(t)
	res.LabelNames = res.LabelNames[:3]
	_, err = New(res)
	assert.ErrorIs(t, err, labels.ErrLabelNames)

	res = testResult(t)
	res.LDA.Predictions = res.LDA.Predictions[:2]
	_, err = New(res)
	assert.Error(t, err)
}
