package processor

import (
	"fmt"
	"math"

	"github.com/nci/burnsky/utils"
)

// SeverityClassifier maps a relativized burn ratio to a severity
// band by a first-match linear scan over an ascending threshold
// table.
type SeverityClassifier struct {
	thresholds []utils.SeverityThreshold
}

// NewSeverityClassifier verifies the table invariants once at
// construction: strictly ascending maxima and an unbounded final
// row, so that every finite RBR matches exactly one band.
func NewSeverityClassifier(thresholds []utils.SeverityThreshold) (*SeverityClassifier, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("severity threshold table is empty")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i].MaxRBR <= thresholds[i-1].MaxRBR {
			return nil, fmt.Errorf("severity threshold maxima must ascend, row %d", i)
		}
	}
	if !math.IsInf(thresholds[len(thresholds)-1].MaxRBR, 1) {
		return nil, fmt.Errorf("severity threshold table must end with an unbounded row")
	}
	return &SeverityClassifier{thresholds: thresholds}, nil
}

// Classify returns the first threshold row with rbr <= max.
// Non-finite values fall through to the fully transparent band.
func (sc *SeverityClassifier) Classify(rbr float64) (utils.SeverityThreshold, bool) {
	if math.IsNaN(rbr) {
		return utils.SeverityThreshold{}, false
	}
	for _, thr := range sc.thresholds {
		if rbr <= thr.MaxRBR {
			return thr, true
		}
	}
	return utils.SeverityThreshold{}, false
}

// Bands lists the band labels in threshold order.
func (sc *SeverityClassifier) Bands() []string {
	bands := make([]string, len(sc.thresholds))
	for i, thr := range sc.thresholds {
		bands[i] = thr.Band
	}
	return bands
}
