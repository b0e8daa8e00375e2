package processor

import (
	"math"
	"testing"

	"github.com/nci/burnsky/utils"
)

func TestClassify(t *testing.T) {
	sc, err := NewSeverityClassifier(utils.DefaultThresholds)
	if err != nil {
		t.Fatalf("classifier construction failed, %v", err)
	}

	cases := []struct {
		rbr   float64
		band  string
		alpha float64
	}{
		{-5.0, "Unburnt", 0.0},
		{0.0, "Unburnt", 0.0},
		{0.10, "Unburnt", 0.0},
		{0.11, "Low", 0.3},
		{0.27, "Low", 0.3},
		{0.30, "Moderate", 0.5},
		{0.44, "Moderate", 0.5},
		{0.50, "Moderate-High", 0.7},
		{0.66, "Moderate-High", 0.7},
		{0.67, "High", 1.0},
		{1e9, "High", 1.0},
	}

	for _, c := range cases {
		thr, ok := sc.Classify(c.rbr)
		if !ok {
			t.Errorf("classify(%v) unexpectedly matched no band", c.rbr)
			continue
		}
		if thr.Band != c.band || thr.Alpha != c.alpha {
			t.Errorf("classify(%v) expecting %s/%v, actual %s/%v", c.rbr, c.band, c.alpha, thr.Band, thr.Alpha)
		}
	}
}

func TestClassifyExhaustive(t *testing.T) {
	sc, err := NewSeverityClassifier(utils.DefaultThresholds)
	if err != nil {
		t.Fatalf("classifier construction failed, %v", err)
	}

	// every finite value matches exactly one row
	for rbr := -10.0; rbr <= 10.0; rbr += 0.01 {
		if _, ok := sc.Classify(rbr); !ok {
			t.Errorf("classify(%v) should match a band", rbr)
		}
	}

	if _, ok := sc.Classify(math.NaN()); ok {
		t.Errorf("classify(NaN) should not match any band")
	}
}

func TestNewSeverityClassifierInvalid(t *testing.T) {
	_, err := NewSeverityClassifier(nil)
	if err == nil {
		t.Errorf("empty threshold table should be rejected")
	}

	nonMonotonic := []utils.SeverityThreshold{
		{MaxRBR: 0.5, Band: "a", Alpha: 0.1},
		{MaxRBR: 0.2, Band: "b", Alpha: 0.4},
		{MaxRBR: math.Inf(1), Band: "c", Alpha: 1.0},
	}
	_, err = NewSeverityClassifier(nonMonotonic)
	if err == nil {
		t.Errorf("non-monotonic threshold table should be rejected")
	}

	bounded := []utils.SeverityThreshold{
		{MaxRBR: 0.5, Band: "a", Alpha: 0.1},
		{MaxRBR: 0.9, Band: "b", Alpha: 0.4},
	}
	_, err = NewSeverityClassifier(bounded)
	if err == nil {
		t.Errorf("threshold table without unbounded final row should be rejected")
	}
}
