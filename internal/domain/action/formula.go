package action

import (
	"math"

	"github.com/Knetic/govaluate"
)

func applyFormula(formula string, values []int) []int {
	if formula == "" {
		return values
	}
	expression, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return values
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = clamp(evaluate(expression, float64(v)))
	}
	return out
}

// evaluate handles simple formulas like "x * 255 / 100"
func evaluate(expression *govaluate.EvaluableExpression, x float64) float64 {
	parameters := make(map[string]interface{}, 1)
	parameters["x"] = x

	result, err := expression.Evaluate(parameters)
	if err != nil {
		return x
	}
	if val, ok := result.(float64); ok && !math.IsNaN(val) {
		return val
	}
	return x
}

func clamp(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return r
}
