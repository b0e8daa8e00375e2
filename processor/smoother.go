package processor

import (
	"fmt"
)

// MovingAverage smooths series with a centred window of wSize
// elements. Windows truncate at the series boundaries, there is
// no wraparound or padding, so edge elements average over fewer
// neighbours. The output has the same length as the input.
//
// The pixel evaluator currently feeds single-element series
// through here, which makes the pass an identity. The general
// contract is kept for true per-pixel neighbourhoods.
func MovingAverage(series []float64, wSize int) ([]float64, error) {
	if wSize < 1 || wSize%2 == 0 {
		return nil, fmt.Errorf("moving average window must be a positive odd number, got %d", wSize)
	}

	out := make([]float64, len(series))
	half := wSize / 2
	for i := range series {
		iBgn := i - half
		if iBgn < 0 {
			iBgn = 0
		}
		iEnd := i + half + 1
		if iEnd > len(series) {
			iEnd = len(series)
		}

		total := 0.0
		for j := iBgn; j < iEnd; j++ {
			total += series[j]
		}
		out[i] = total / float64(iEnd-iBgn)
	}
	return out, nil
}
