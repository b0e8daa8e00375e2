package processor

// PixelEvaluator computes the severity overlay value of one
// pixel from its pre/post fire samples. Evaluations are pure
// and carry no state across pixels, so one evaluator is shared
// safely by all tiler workers.
type PixelEvaluator struct {
	excluded   map[int]bool
	classifier *SeverityClassifier
	window     int
	indexExpr  *IndexExpression
}

func NewPixelEvaluator(payload *ConfigPayLoad) (*PixelEvaluator, error) {
	classifier, err := NewSeverityClassifier(payload.Thresholds)
	if err != nil {
		return nil, err
	}

	indexExpr, err := ParseIndexExpression(payload.IndexExpression)
	if err != nil {
		return nil, err
	}

	window := payload.SmoothingWindow
	if window < 1 {
		window = 1
	}

	excluded := make(map[int]bool)
	for _, code := range payload.ExcludedSCL {
		excluded[code] = true
	}

	return &PixelEvaluator{
		excluded:   excluded,
		classifier: classifier,
		window:     window,
		indexExpr:  indexExpr,
	}, nil
}

func (ev *PixelEvaluator) index(s Sample) (float64, error) {
	if ev.indexExpr != nil {
		return ev.indexExpr.Evaluate(s.NIR, s.SWIR)
	}
	return NBR(s.NIR, s.SWIR)
}

// Evaluate runs the per-pixel chain: masking, index computation,
// smoothing, relativization, classification and colour mapping.
// Every invalid condition resolves to the transparent pixel and
// never escalates.
func (ev *PixelEvaluator) Evaluate(samples []Sample) PixelRGBA {
	if len(samples) != 2 {
		return TransparentPixel
	}

	for _, s := range samples {
		if ev.excluded[s.SCL] || s.DataMask == 0 {
			return TransparentPixel
		}
	}

	preIndex, err := ev.index(samples[0])
	if err != nil {
		return TransparentPixel
	}
	postIndex, err := ev.index(samples[1])
	if err != nil {
		return TransparentPixel
	}

	// Degenerate at series length 1, kept for parity with the
	// windowed average contract.
	preSeries, err := MovingAverage([]float64{preIndex}, ev.window)
	if err != nil {
		return TransparentPixel
	}
	postSeries, err := MovingAverage([]float64{postIndex}, ev.window)
	if err != nil {
		return TransparentPixel
	}
	preIndex, postIndex = preSeries[0], postSeries[0]

	rbr, err := Relativize(preIndex-postIndex, preIndex)
	if err != nil {
		return TransparentPixel
	}

	thr, ok := ev.classifier.Classify(rbr)
	if !ok {
		return TransparentPixel
	}

	red, green, blue := BurnColour(rbr)
	return PixelRGBA{
		Red:   red,
		Green: green,
		Blue:  blue,
		Alpha: AdjustAlpha(thr.Alpha),
	}
}

// ClassifyRBR exposes the classifier for the stats pipeline.
func (ev *PixelEvaluator) ClassifyRBR(rbr float64) (string, bool) {
	thr, ok := ev.classifier.Classify(rbr)
	return thr.Band, ok
}

// RBR computes the relativized burn ratio of a sample pair
// without the colour mapping, for aggregate statistics. The
// boolean reports whether the pixel participates at all.
func (ev *PixelEvaluator) RBR(samples []Sample) (float64, bool) {
	if len(samples) != 2 {
		return 0, false
	}
	for _, s := range samples {
		if ev.excluded[s.SCL] || s.DataMask == 0 {
			return 0, false
		}
	}

	preIndex, err := ev.index(samples[0])
	if err != nil {
		return 0, false
	}
	postIndex, err := ev.index(samples[1])
	if err != nil {
		return 0, false
	}

	rbr, err := Relativize(preIndex-postIndex, preIndex)
	if err != nil {
		return 0, false
	}
	return rbr, true
}

// Bands lists the severity band labels in threshold order.
func (ev *PixelEvaluator) Bands() []string {
	return ev.classifier.Bands()
}
