package action

import (
	"rc-lights/internal/domain/model"
)

// CycleHandler steps the lights through the rule's brightness vectors. The
// current step is found by comparing live brightness with each vector.
type CycleHandler struct{}

func (h *CycleHandler) Plan(rule *model.CommandRule, entities []string, states []*model.EntityState) ([]model.ServiceCall, error) {
	if len(rule.Cycles) == 0 {
		return nil, ErrNoCycles
	}

	cycles := make([][]int, len(rule.Cycles))
	for i, c := range rule.Cycles {
		cycles[i] = Broadcast(applyFormula(rule.BrightnessFormula, c), len(entities))
	}

	current := make([]int, len(entities))
	for i := range entities {
		if i < len(states) {
			current[i] = states[i].Brightness()
		}
	}

	target := cycles[NextIndex(CurrentIndex(cycles, current), len(cycles))]

	calls := make([]model.ServiceCall, 0, len(entities))
	for i, ent := range entities {
		calls = append(calls, model.SetBrightness(ent, target[i]))
	}
	return calls, nil
}

// CurrentIndex returns the index of the first vector equal to current, or -1.
func CurrentIndex(cycles [][]int, current []int) int {
	for i, c := range cycles {
		if equal(c, current) {
			return i
		}
	}
	return -1
}

// NextIndex advances idx, wrapping to 0 after the last of n entries.
func NextIndex(idx, n int) int {
	if idx < n-1 {
		return idx + 1
	}
	return 0
}

// Broadcast sizes v to n values: missing entries repeat v[0] (0 when v is
// empty), extra entries are dropped.
func Broadcast(v []int, n int) []int {
	out := make([]int, n)
	fill := 0
	if len(v) > 0 {
		fill = v[0]
	}
	for i := range out {
		if i < len(v) {
			out[i] = v[i]
		} else {
			out[i] = fill
		}
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
