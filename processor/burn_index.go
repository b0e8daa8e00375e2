package processor

import (
	"fmt"
	"math"
	"strings"

	goeval "github.com/edisonguo/govaluate"
)

// ErrZeroReflectance is returned by NBR when the combined band
// reflectance is zero and the ratio is undefined.
var ErrZeroReflectance = fmt.Errorf("nir and swir reflectances sum to zero")

// ErrZeroBaseline is returned by Relativize when the pre-fire
// index is zero and the relativized ratio is undefined.
var ErrZeroBaseline = fmt.Errorf("baseline index is zero")

// NBR computes the normalized burn ratio (nir-swir)/(nir+swir)
// for one sample. The undefined zero-denominator case surfaces
// as ErrZeroReflectance rather than a non-finite float.
func NBR(nir, swir float64) (float64, error) {
	sum := nir + swir
	if sum == 0 {
		return 0, ErrZeroReflectance
	}
	return (nir - swir) / sum, nil
}

// Relativize normalizes a difference of indices by the magnitude
// of the pre-fire baseline: delta / sqrt(|baseline|).
func Relativize(delta, baseline float64) (float64, error) {
	if baseline == 0 {
		return 0, ErrZeroBaseline
	}
	return delta / math.Sqrt(math.Abs(baseline)), nil
}

// IndexExpression is an optional user-supplied replacement for
// the built-in NBR formula, evaluated over the variables nir and
// swir.
type IndexExpression struct {
	expr *goeval.EvaluableExpression
}

var validIndexVariables = map[string]struct{}{"nir": struct{}{}, "swir": struct{}{}}

// ParseIndexExpression validates pattern at construction time.
// An empty pattern yields a nil expression and the NBR fast path.
func ParseIndexExpression(pattern string) (*IndexExpression, error) {
	if len(strings.TrimSpace(pattern)) == 0 {
		return nil, nil
	}

	expr, err := goeval.NewEvaluableExpression(pattern)
	if err != nil {
		return nil, err
	}

	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if _, found := validIndexVariables[varName]; !found {
				return nil, fmt.Errorf("variable %v is not supported. Valid variables are %v", varName, validIndexVariables)
			}
		}
	}
	return &IndexExpression{expr: expr}, nil
}

// Evaluate computes the index for one sample. Non-finite results
// are reported as errors, matching the NBR contract.
func (ie *IndexExpression) Evaluate(nir, swir float64) (float64, error) {
	params := map[string]interface{}{"nir": nir, "swir": swir}
	res, err := ie.expr.Evaluate(params)
	if err != nil {
		return 0, err
	}

	// govaluate evaluates arithmetic to float32
	var val float64
	switch v := res.(type) {
	case float32:
		val = float64(v)
	case float64:
		val = v
	default:
		return 0, fmt.Errorf("index expression evaluated to non-numeric value: %v", res)
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, ErrZeroReflectance
	}
	return val, nil
}
