package report

import (
	"bytes"
	"errors"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"mi-bci/internal/classify"
	"mi-bci/internal/csp"
	"mi-bci/internal/labels"
	"mi-bci/internal/pipeline"
	"mi-bci/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/tiff"
)

func sampleResult(t *testing.T) *pipeline.Result {
	t.Helper()
	m, err := labels.NewMapping([]string{"left", "right"})
	require.NoError(t, err)
	names := labels.DefaultNames(m)
	model := func(name string, cm classify.Confusion) pipeline.ModelResult {
		rep, err := classify.NewReport(cm, names)
		require.NoError(t, err)
		return pipeline.ModelResult{
			Name:      name,
			Best:      classify.Params{{Name: "C", Value: 1.0}},
			Accuracy:  cm.Accuracy(),
			Confusion: cm,
			Report:    rep,
		}
	}
	return &pipeline.Result{
		RunID:        "0123456789abcdef",
		Mapping:      m,
		LabelNames:   names,
		TrainIndices: []int{0, 1, 2, 3},
		TestIndices:  []int{4, 5, 6},
		TestLabels:   []int{0, 1, 1},
		Extraction: []csp.ClassResult{
			{Class: 0, Outcome: csp.Fitted, Reg: 0.1},
			{Class: 1, Outcome: csp.ZeroFilled, Err: errors.New("degenerate")},
		},
		SVM: model("SVM", classify.Confusion{{1, 0}, {0, 2}}),
		LDA: model("LDA", classify.Confusion{{1, 0}, {1, 1}}),
	}
}

func TestHeatmapLayoutAndColors(t *testing.T) {
	cm := classify.Confusion{{3, 0}, {1, 2}}
	names := []string{"Left Hand", "Right Hand"}
	title := "SVM Confusion Matrix (Acc: 0.8333)"

	img, err := Heatmap(cm, names, title, 1)
	require.NoError(t, err)
	l := layoutFor(names, title)
	assert.Equal(t, image.Rect(0, 0, l.width, l.height), img.Bounds())

	// Corner pixels of each cell carry the colormap, away from the count text.
	assert.Equal(t, colorutil.Blues(1), img.RGBAAt(l.left+1, l.top+1))
	assert.Equal(t, colorutil.Blues(0), img.RGBAAt(l.left+l.cell+1, l.top+1))
	assert.Equal(t, colorutil.Blues(1.0/3), img.RGBAAt(l.left+1, l.top+l.cell+1))

	big, err := Heatmap(cm, names, title, 3)
	require.NoError(t, err)
	assert.Equal(t, 3*l.width, big.Bounds().Dx())
	assert.Equal(t, colorutil.Blues(1), big.RGBAAt(3*(l.left+1), 3*(l.top+1)))
}

func TestHeatmapErrors(t *testing.T) {
	_, err := Heatmap(nil, nil, "", 1)
	assert.Error(t, err)
	_, err = Heatmap(classify.Confusion{{1}}, []string{"a", "b"}, "", 1)
	assert.Error(t, err)

	img, err := Heatmap(classify.Confusion{{0, 0}, {0, 0}}, []string{"a", "b"}, "empty", 0)
	require.NoError(t, err)
	l := layoutFor([]string{"a", "b"}, "empty")
	assert.Equal(t, colorutil.Blues(0), img.RGBAAt(l.left+1, l.top+1))
}

func TestCombinedPlacesModelsSideBySide(t *testing.T) {
	res := sampleResult(t)
	svm, err := ModelHeatmap(&res.SVM, res.LabelNames, 1)
	require.NoError(t, err)
	both, err := Combined(res, 1)
	require.NoError(t, err)
	assert.Equal(t, 2*svm.Bounds().Dx(), both.Bounds().Dx())
}

func TestWriteHeatmaps(t *testing.T) {
	res := sampleResult(t)
	for _, ext := range []string{".png", ".tiff"} {
		dir := filepath.Join(t.TempDir(), "reports")
		paths, err := WriteHeatmaps(dir, res, ext, 2)
		require.NoError(t, err)
		require.Len(t, paths, 2)
		assert.Equal(t, filepath.Join(dir, "01234567-svm"+ext), paths[0])

		f, err := os.Open(paths[1])
		require.NoError(t, err)
		img, format, err := image.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Contains(t, []string{"png", "tiff"}, format)
		assert.Positive(t, img.Bounds().Dx())
	}

	_, err := WriteHeatmaps(t.TempDir(), res, ".bmp", 1)
	assert.Error(t, err)
	assert.True(t, IsSupportedFormat("x.TIF"))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleResult(t)))
	out := buf.String()

	assert.Contains(t, out, "Run 0123456789abcdef")
	assert.Contains(t, out, "Held-out trials: 3 of 7")
	assert.Contains(t, out, "fitted, reg=0.1")
	assert.Contains(t, out, "zero-filled (degenerate)")
	assert.Contains(t, out, "SVM Best Parameters: {C: 1}")
	assert.Contains(t, out, "SVM Accuracy: 1.0000")
	assert.Contains(t, out, "LDA Accuracy: 0.6667")
	assert.Contains(t, out, "LDA Classification Report:")
	assert.Contains(t, out, "Right Hand")
}
