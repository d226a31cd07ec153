package multinomial

import (
	"container/heap"
	"strings"

	"github.com/pkg/errors"
)

// SelectorKind names a strategy for picking argmin(q) in the greedy phase.
type SelectorKind int

const (
	// SelectorHeap keeps categories in a binary min-heap ordered by
	// (q, index). Each pick costs O(log r).
	SelectorHeap SelectorKind = iota
	// SelectorLinear scans every category on each pick, first-seen wins.
	// Each pick costs O(r).
	SelectorLinear
)

var selectorNames = map[SelectorKind]string{
	SelectorHeap:   "heap",
	SelectorLinear: "linear",
}

func (k SelectorKind) String() string {
	if name, ok := selectorNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseSelector maps a name ("heap" or "linear") to a SelectorKind.
func ParseSelector(name string) (SelectorKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, v := range selectorNames {
		if v == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown selector %q (want heap or linear)", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k SelectorKind) MarshalText() ([]byte, error) {
	if _, ok := selectorNames[k]; !ok {
		return nil, errors.Errorf("unknown selector %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SelectorKind) UnmarshalText(text []byte) error {
	v, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k SelectorKind) selector() (selector, error) {
	switch k {
	case SelectorHeap:
		return &heapSelector{}, nil
	case SelectorLinear:
		return &linearSelector{}, nil
	}
	return nil, errors.Errorf("unknown selector %d", int(k))
}

// selector tracks the pending thresholds q. The greedy phase only ever
// changes the q of the category min just returned, and calls fix after
// doing so.
type selector interface {
	init(q []float64)
	min() int
	fix()
}

type linearSelector struct {
	q []float64
}

func (l *linearSelector) init(q []float64) { l.q = q }

func (l *linearSelector) min() int {
	a := 0
	for i := 1; i < len(l.q); i++ {
		if l.q[i] < l.q[a] {
			a = i
		}
	}
	return a
}

func (l *linearSelector) fix() {}

// heapSelector orders category indexes by (q, index). Equal thresholds
// fall back to the index, so the heap always surfaces the same category a
// linear first-seen scan would.
type heapSelector struct {
	q   []float64
	idx []int
}

func (h *heapSelector) init(q []float64) {
	h.q = q
	h.idx = make([]int, len(q))
	for i := range h.idx {
		h.idx[i] = i
	}
	heap.Init(h)
}

func (h *heapSelector) min() int { return h.idx[0] }

func (h *heapSelector) fix() { heap.Fix(h, 0) }

func (h *heapSelector) Len() int { return len(h.idx) }

func (h *heapSelector) Less(i, j int) bool {
	a, b := h.idx[i], h.idx[j]
	if h.q[a] != h.q[b] {
		return h.q[a] < h.q[b]
	}
	return a < b
}

func (h *heapSelector) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }

// Push and Pop satisfy heap.Interface; the category set never changes
// size once initialized, so neither is reached.
func (h *heapSelector) Push(x interface{}) { h.idx = append(h.idx, x.(int)) }

func (h *heapSelector) Pop() interface{} {
	last := h.idx[len(h.idx)-1]
	h.idx = h.idx[:len(h.idx)-1]
	return last
}
