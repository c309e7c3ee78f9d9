package classify

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Split holds row indices of a train/test partition, each in ascending order.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit partitions rows into train and test sets, stratified by
// label. The test set holds ceil(testFraction·n) rows distributed over
// classes by largest remainder, with at least one row of every class on
// each side. The same seed always yields the same split.
func TrainTestSplit(y []int, testFraction float64, seed int64) (Split, error) {
	if !(testFraction > 0 && testFraction < 1) {
		return Split{}, fmt.Errorf("test fraction %g outside (0, 1)", testFraction)
	}
	byClass := groupByClass(y)
	if len(byClass) < 2 {
		return Split{}, fmt.Errorf("%w: need at least two classes, got %d", ErrTooFewSamples, len(byClass))
	}
	for c, idx := range byClass {
		if len(idx) < 2 {
			return Split{}, fmt.Errorf("%w: class %d has %d sample(s), need 2 to stratify", ErrTooFewSamples, c, len(idx))
		}
	}

	n := len(y)
	nTest := int(math.Ceil(testFraction * float64(n)))
	alloc := allocate(byClass, n, nTest)

	rng := rand.New(rand.NewSource(seed))
	var s Split
	for _, c := range sortedClasses(byClass) {
		shuffled := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		s.Test = append(s.Test, shuffled[:alloc[c]]...)
		s.Train = append(s.Train, shuffled[alloc[c]:]...)
	}
	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s, nil
}

// allocate distributes total test rows over classes in proportion to their
// size, keeping each class between 1 and size-1 rows.
func allocate(byClass map[int][]int, n, total int) map[int]int {
	type share struct {
		class int
		rem   float64
	}
	alloc := make(map[int]int, len(byClass))
	var shares []share
	used := 0
	for _, c := range sortedClasses(byClass) {
		exact := float64(total) * float64(len(byClass[c])) / float64(n)
		alloc[c] = int(math.Floor(exact))
		used += alloc[c]
		shares = append(shares, share{c, exact - math.Floor(exact)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].rem > shares[j].rem })
	for i := 0; used < total && i < len(shares); i++ {
		alloc[shares[i].class]++
		used++
	}
	for c, idx := range byClass {
		if alloc[c] < 1 {
			alloc[c] = 1
		}
		if alloc[c] > len(idx)-1 {
			alloc[c] = len(idx) - 1
		}
	}
	return alloc
}

// StratifiedKFold assigns every row to one of k test folds. Rows of each
// class are dealt round-robin in index order, continuing where the previous
// class stopped so that fold sizes differ by at most one.
func StratifiedKFold(y []int, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if len(y) < k {
		return nil, fmt.Errorf("%w: %d samples for %d folds", ErrTooFewSamples, len(y), k)
	}
	byClass := groupByClass(y)
	folds := make([][]int, k)
	next := 0
	for _, c := range sortedClasses(byClass) {
		for _, i := range byClass[c] {
			folds[next%k] = append(folds[next%k], i)
			next++
		}
	}
	for f := range folds {
		sort.Ints(folds[f])
	}
	return folds, nil
}

// complement returns the indices 0..n-1 not in test, which must be sorted.
func complement(n int, test []int) []int {
	out := make([]int, 0, n-len(test))
	t := 0
	for i := 0; i < n; i++ {
		if t < len(test) && test[t] == i {
			t++
			continue
		}
		out = append(out, i)
	}
	return out
}

func groupByClass(y []int) map[int][]int {
	out := make(map[int][]int)
	for i, v := range y {
		out[v] = append(out[v], i)
	}
	return out
}

func sortedClasses(byClass map[int][]int) []int {
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}
