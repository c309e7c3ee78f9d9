package classify

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Accuracy is the fraction of positions where pred equals truth.
func Accuracy(truth, pred []int) float64 {
	if len(truth) == 0 {
		return 0
	}
	hit := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(truth))
}

// Confusion is a K × K count matrix, rows true class, columns predicted.
type Confusion [][]int

// NewConfusion tallies predictions for k classes.
func NewConfusion(truth, pred []int, k int) (Confusion, error) {
	if len(truth) != len(pred) {
		return nil, fmt.Errorf("%d labels for %d predictions", len(truth), len(pred))
	}
	cm := make(Confusion, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	for i := range truth {
		t, p := truth[i], pred[i]
		if t < 0 || t >= k || p < 0 || p >= k {
			return nil, fmt.Errorf("label pair (%d, %d) outside %d classes", t, p, k)
		}
		cm[t][p]++
	}
	return cm, nil
}

// Total is the sum of all entries.
func (cm Confusion) Total() int {
	n := 0
	for _, row := range cm {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// Trace is the sum of the diagonal.
func (cm Confusion) Trace() int {
	n := 0
	for i := range cm {
		n += cm[i][i]
	}
	return n
}

// RowSums returns the per-class support.
func (cm Confusion) RowSums() []int {
	out := make([]int, len(cm))
	for i, row := range cm {
		for _, v := range row {
			out[i] += v
		}
	}
	return out
}

// Accuracy is Trace / Total, or 0 for an empty matrix.
func (cm Confusion) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.Trace()) / float64(total)
}

// Dense returns the counts as a matrix.
func (cm Confusion) Dense() *mat.Dense {
	k := len(cm)
	d := mat.NewDense(k, k, nil)
	for i, row := range cm {
		for j, v := range row {
			d.Set(i, j, float64(v))
		}
	}
	return d
}

// Evaluation is a model's score on held-out rows.
type Evaluation struct {
	Predictions []int
	Accuracy    float64
	Confusion   Confusion
}

// Evaluate predicts x and scores against y over k classes. Accuracy is
// derived from the confusion matrix.
func Evaluate(model Classifier, x mat.Matrix, y []int, k int) (*Evaluation, error) {
	pred, err := model.Predict(x)
	if err != nil {
		return nil, err
	}
	cm, err := NewConfusion(y, pred, k)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Predictions: pred, Accuracy: cm.Accuracy(), Confusion: cm}, nil
}

// ClassMetrics are per-class precision, recall and F1.
type ClassMetrics struct {
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarizes a confusion matrix per class.
type Report struct {
	Classes     []ClassMetrics
	Accuracy    float64
	Total       int
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
}

// NewReport computes the report for cm with one name per class. Undefined
// ratios are reported as 0.
func NewReport(cm Confusion, names []string) (*Report, error) {
	k := len(cm)
	if len(names) != k {
		return nil, fmt.Errorf("%d names for %d classes", len(names), k)
	}
	support := cm.RowSums()
	predicted := make([]int, k)
	for _, row := range cm {
		for j, v := range row {
			predicted[j] += v
		}
	}

	r := &Report{Accuracy: cm.Accuracy(), Total: cm.Total(), Classes: make([]ClassMetrics, k)}
	precision := make([]float64, k)
	recall := make([]float64, k)
	f1 := make([]float64, k)
	weights := make([]float64, k)
	for c := 0; c < k; c++ {
		precision[c] = ratio(cm[c][c], predicted[c])
		recall[c] = ratio(cm[c][c], support[c])
		if s := precision[c] + recall[c]; s > 0 {
			f1[c] = 2 * precision[c] * recall[c] / s
		}
		weights[c] = float64(support[c])
		r.Classes[c] = ClassMetrics{
			Name:      names[c],
			Precision: precision[c],
			Recall:    recall[c],
			F1:        f1[c],
			Support:   support[c],
		}
	}

	r.MacroAvg = ClassMetrics{
		Name:      "macro avg",
		Precision: floats.Sum(precision) / float64(k),
		Recall:    floats.Sum(recall) / float64(k),
		F1:        floats.Sum(f1) / float64(k),
		Support:   r.Total,
	}
	r.WeightedAvg = ClassMetrics{Name: "weighted avg", Support: r.Total}
	if r.Total > 0 {
		total := float64(r.Total)
		r.WeightedAvg.Precision = floats.Dot(precision, weights) / total
		r.WeightedAvg.Recall = floats.Dot(recall, weights) / total
		r.WeightedAvg.F1 = floats.Dot(f1, weights) / total
	}
	return r, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		width = max(width, len(c.Name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	for _, c := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Name, c.Precision, c.Recall, c.F1, c.Support)
	}
	return b.String()
}
