package processor

import (
	"encoding/json"
	"math"
	"testing"

	geo "github.com/nci/geometry"
)

func unitSquare(t *testing.T) geo.Geometry {
	payload := `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]]]}}`
	var feat geo.Feature
	err := json.Unmarshal([]byte(payload), &feat)
	if err != nil {
		t.Fatalf("failed to decode test feature: %v", err)
	}
	return feat.Geometry
}

func TestPolygonMask(t *testing.T) {
	mask, err := NewPolygonMask(unitSquare(t))
	if err != nil {
		t.Fatalf("mask construction failed, %v", err)
	}

	inside := [][]float64{{2, 2}, {0.5, 3.5}, {3.9, 0.1}}
	for _, pt := range inside {
		if !mask.Contains(pt[0], pt[1]) {
			t.Errorf("point %v should be inside", pt)
		}
	}

	outside := [][]float64{{-1, 2}, {5, 2}, {2, 4.5}, {2, -0.5}}
	for _, pt := range outside {
		if mask.Contains(pt[0], pt[1]) {
			t.Errorf("point %v should be outside", pt)
		}
	}
}

func TestPolygonMaskEnvelopeArea(t *testing.T) {
	mask, err := NewPolygonMask(unitSquare(t))
	if err != nil {
		t.Fatalf("mask construction failed, %v", err)
	}

	env := mask.Envelope()
	expected := []float64{0, 0, 4, 4}
	for i := range expected {
		if env[i] != expected[i] {
			t.Errorf("envelope test failed, expecting %v, actual %v", expected, env)
			break
		}
	}

	if math.Abs(mask.Area()-16.0) > 1e-9 {
		t.Errorf("area test failed, expecting 16, actual %v", mask.Area())
	}
}

func TestNewPolygonMaskRejectsNil(t *testing.T) {
	_, err := NewPolygonMask(nil)
	if err == nil {
		t.Errorf("nil geometry should be rejected")
	}
}
