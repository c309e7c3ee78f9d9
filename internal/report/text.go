package report

import (
	"fmt"
	"io"
	"strings"

	"mi-bci/internal/csp"
	"mi-bci/internal/pipeline"
)

// WriteText prints the extraction outcome and, per classifier, the best
// parameters, held-out accuracy and classification report.
func WriteText(w io.Writer, res *pipeline.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s\n", res.RunID)
	fmt.Fprintf(&b, "Classes: %s\n", strings.Join(res.LabelNames, ", "))
	fmt.Fprintf(&b, "Held-out trials: %d of %d\n\n", len(res.TestIndices), len(res.TestIndices)+len(res.TrainIndices))

	b.WriteString("CSP filters:\n")
	for _, c := range res.Extraction {
		name := res.Mapping.Value(c.Class)
		switch c.Outcome {
		case csp.ZeroFilled:
			fmt.Fprintf(&b, "  %-12s %s (%v)\n", name, c.Outcome, c.Err)
		default:
			fmt.Fprintf(&b, "  %-12s %s, reg=%g\n", name, c.Outcome, c.Reg)
		}
	}
	b.WriteString("\n")

	for _, m := range res.Models() {
		fmt.Fprintf(&b, "%s Best Parameters: %v\n", m.Name, m.Best)
		fmt.Fprintf(&b, "%s Cross-validation Accuracy: %.4f\n", m.Name, m.CVScore)
		fmt.Fprintf(&b, "%s Accuracy: %.4f\n", m.Name, m.Accuracy)
		fmt.Fprintf(&b, "%s Classification Report:\n", m.Name)
		if m.Report != nil {
			b.WriteString(m.Report.String())
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
