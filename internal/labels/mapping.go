// Package labels maps motor-imagery class labels between their recorded
// values, dense 0-based indices and display names.
package labels

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

var (
	// ErrNoLabels is returned when a mapping is built from no observations.
	ErrNoLabels = errors.New("no labels")

	// ErrUnknownLabel is returned when a value has no index in the mapping.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrLabelNames is returned when the supplied display names do not
	// cover the observed classes one to one.
	ErrLabelNames = errors.New("label names do not match observed classes")
)

// Mapping is a bijection between recorded label values and dense indices,
// built from the sorted set of unique observed values.
type Mapping struct {
	values []string
	index  map[string]int
}

// NewMapping builds the mapping from observed labels. Values are ordered
// numerically when all of them parse as numbers, lexically otherwise.
func NewMapping(observed []string) (*Mapping, error) {
	if len(observed) == 0 {
		return nil, ErrNoLabels
	}

	seen := make(map[string]bool)
	var unique []string
	for _, v := range observed {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	Sort(unique)

	m := &Mapping{
		values: unique,
		index:  make(map[string]int, len(unique)),
	}
	for i, v := range unique {
		m.index[v] = i
	}
	return m, nil
}

// Sort orders label values in place: numerically when every value parses
// as a number other than NaN, lexicographically otherwise.
func Sort(values []string) {
	numeric := make([]float64, len(values))
	allNumeric := true
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			allNumeric = false
			break
		}
		numeric[i] = f
	}
	if !allNumeric {
		sort.Strings(values)
		return
	}
	sort.Sort(byNumber{values, numeric})
}

type byNumber struct {
	values []string
	keys   []float64
}

func (b byNumber) Len() int           { return len(b.values) }
func (b byNumber) Less(i, j int) bool {
	if b.keys[i] != b.keys[j] {
		return b.keys[i] < b.keys[j]
	}
	return b.values[i] < b.values[j]
}
func (b byNumber) Swap(i, j int) {
	b.values[i], b.values[j] = b.values[j], b.values[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// Len returns the number of classes.
func (m *Mapping) Len() int {
	return len(m.values)
}

// Values returns the recorded label values in index order.
func (m *Mapping) Values() []string {
	out := make([]string, len(m.values))
	copy(out, m.values)
	return out
}

// Index returns the dense index of a recorded value.
func (m *Mapping) Index(value string) (int, bool) {
	i, ok := m.index[value]
	return i, ok
}

// Value returns the recorded value for a dense index.
func (m *Mapping) Value(i int) string {
	return m.values[i]
}

// Apply converts recorded labels to dense indices.
func (m *Mapping) Apply(observed []string) ([]int, error) {
	dense := make([]int, len(observed))
	for i, v := range observed {
		idx, ok := m.index[v]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, v)
		}
		dense[i] = idx
	}
	return dense, nil
}

// Invert converts dense indices back to recorded values.
func (m *Mapping) Invert(dense []int) []string {
	out := make([]string, len(dense))
	for i, d := range dense {
		out[i] = m.values[d]
	}
	return out
}

// ValidateNames checks that exactly one display name is supplied per class.
func ValidateNames(names []string, classes int) error {
	if len(names) != classes {
		return fmt.Errorf("%w: %d names for %d classes", ErrLabelNames, len(names), classes)
	}
	return nil
}
