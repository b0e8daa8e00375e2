package processor

import (
	"encoding/json"
	"fmt"
	"time"

	geo "github.com/nci/geometry"
	"golang.org/x/net/context"
)

// SeverityStats aggregates per-band pixel counts over a region.
// Partial results from row shards merge additively.
type SeverityStats struct {
	Bands        []string
	BandCounts   map[string]int64
	Masked       int64
	Outside      int64
	Total        int64
	SumRBR       float64
	NumRBR       int64
	Insufficient bool
	Pair         *ScenePair
	Collection   string
}

// StatsEvaluator computes severity statistics for the pixels of
// the request grid that fall inside the request polygon. Row
// shards evaluate in parallel, one partial result per shard.
type StatsEvaluator struct {
	Context context.Context
	In      chan *ScenePairRequest
	Out     chan *SeverityStats
	Error   chan error
	Source  SampleSource
}

func NewStatsEvaluator(ctx context.Context, source SampleSource, errChan chan error) *StatsEvaluator {
	return &StatsEvaluator{
		Context: ctx,
		In:      make(chan *ScenePairRequest, 100),
		Out:     make(chan *SeverityStats, 100),
		Error:   errChan,
		Source:  source,
	}
}

func (se *StatsEvaluator) Run(verbose bool) {
	defer close(se.Out)
	for pairReq := range se.In {
		select {
		case <-se.Context.Done():
			se.Error <- fmt.Errorf("stats evaluator context has been cancelled: %v", se.Context.Err())
			return
		default:
			err := se.evaluatePair(pairReq)
			if err != nil {
				se.Error <- err
				return
			}
		}
	}
}

func (se *StatsEvaluator) evaluatePair(pairReq *ScenePairRequest) error {
	geoReq := pairReq.GeoBurnRequest

	if pairReq.Pair == nil {
		se.Out <- &SeverityStats{Insufficient: true, Collection: geoReq.Collection}
		return nil
	}

	mask, err := NewPolygonMask(geoReq.Polygon)
	if err != nil {
		return err
	}

	preRaster, err := se.Source.Load(se.Context, geoReq, pairReq.Pair.Pre)
	if err != nil {
		return fmt.Errorf("loading pre-fire raster failed: %v", err)
	}
	postRaster, err := se.Source.Load(se.Context, geoReq, pairReq.Pair.Post)
	if err != nil {
		return fmt.Errorf("loading post-fire raster failed: %v", err)
	}

	for _, raster := range []*SceneRaster{preRaster, postRaster} {
		if raster.Width != geoReq.Width || raster.Height != geoReq.Height {
			return fmt.Errorf("scene raster size %dx%d does not match request grid %dx%d", raster.Width, raster.Height, geoReq.Width, geoReq.Height)
		}
	}

	evaluator, err := NewPixelEvaluator(&geoReq.ConfigPayLoad)
	if err != nil {
		return err
	}

	t0 := time.Now()
	xRes := (geoReq.BBox[2] - geoReq.BBox[0]) / float64(geoReq.Width)
	yRes := (geoReq.BBox[3] - geoReq.BBox[1]) / float64(geoReq.Height)

	nShards := geoReq.ConcLimit
	if nShards < 1 {
		nShards = 1
	}
	rowsPerShard := (geoReq.Height + nShards - 1) / nShards

	partials := make([]*SeverityStats, 0, nShards)
	cLimiter := NewConcLimiter(nShards)
	for yBgn := 0; yBgn < geoReq.Height; yBgn += rowsPerShard {
		yEnd := yBgn + rowsPerShard
		if yEnd > geoReq.Height {
			yEnd = geoReq.Height
		}

		partial := &SeverityStats{
			Bands:      evaluator.Bands(),
			BandCounts: make(map[string]int64),
			Pair:       pairReq.Pair,
			Collection: geoReq.Collection,
		}
		partials = append(partials, partial)

		cLimiter.Increase()
		go func(yBgn, yEnd int, stats *SeverityStats) {
			defer cLimiter.Decrease()
			samples := make([]Sample, 2)
			for y := yBgn; y < yEnd; y++ {
				// pixel centres, top row maps to the bbox maximum y
				cy := geoReq.BBox[3] - (float64(y)+0.5)*yRes
				for x := 0; x < geoReq.Width; x++ {
					stats.Total++

					cx := geoReq.BBox[0] + (float64(x)+0.5)*xRes
					if !mask.Contains(cx, cy) {
						stats.Outside++
						continue
					}

					i := y*geoReq.Width + x
					samples[0] = Sample{NIR: preRaster.NIR[i], SWIR: preRaster.SWIR[i], SCL: int(preRaster.SCL[i]), DataMask: int(preRaster.DataMask[i])}
					samples[1] = Sample{NIR: postRaster.NIR[i], SWIR: postRaster.SWIR[i], SCL: int(postRaster.SCL[i]), DataMask: int(postRaster.DataMask[i])}

					rbr, ok := evaluator.RBR(samples)
					if !ok {
						stats.Masked++
						continue
					}

					band, ok := evaluator.ClassifyRBR(rbr)
					if !ok {
						stats.Masked++
						continue
					}
					stats.BandCounts[band]++
					stats.SumRBR += rbr
					stats.NumRBR++
				}
			}
		}(yBgn, yEnd, partial)
	}
	cLimiter.Wait()

	if geoReq.MetricsCollector != nil {
		geoReq.MetricsCollector.Info.Eval.Duration += time.Since(t0)
		geoReq.MetricsCollector.Info.Eval.NumPixels += int64(geoReq.Width * geoReq.Height)
		for _, partial := range partials {
			geoReq.MetricsCollector.Info.Eval.NumMaskedPixels += partial.Masked
		}
	}

	for _, partial := range partials {
		se.Out <- partial
	}
	return nil
}

// PolygonMask is an even-odd point-in-polygon test over GeoJSON
// Polygon and MultiPolygon geometries. The geometry round-trips
// through JSON to stay independent of the geometry package's
// internal layout.
type PolygonMask struct {
	rings [][][]float64
}

func NewPolygonMask(geom geo.Geometry) (*PolygonMask, error) {
	if geom == nil {
		return nil, fmt.Errorf("stats request carries no polygon")
	}

	raw, err := json.Marshal(geom)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats geometry: %v", err)
	}

	var head struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	err = json.Unmarshal(raw, &head)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stats geometry: %v", err)
	}

	mask := &PolygonMask{}
	switch head.Type {
	case "Polygon":
		var coords [][][]float64
		err = json.Unmarshal(head.Coordinates, &coords)
		if err != nil {
			return nil, fmt.Errorf("failed to decode polygon coordinates: %v", err)
		}
		mask.rings = coords
	case "MultiPolygon":
		var coords [][][][]float64
		err = json.Unmarshal(head.Coordinates, &coords)
		if err != nil {
			return nil, fmt.Errorf("failed to decode multipolygon coordinates: %v", err)
		}
		for _, poly := range coords {
			mask.rings = append(mask.rings, poly...)
		}
	default:
		return nil, fmt.Errorf("geometry type %s not supported for stats", head.Type)
	}

	if len(mask.rings) == 0 {
		return nil, fmt.Errorf("stats geometry has no rings")
	}
	return mask, nil
}

// Contains reports whether (x, y) is inside the polygon under
// the even-odd rule. Holes are interior rings and toggle the
// crossing count like any other ring.
func (pm *PolygonMask) Contains(x, y float64) bool {
	inside := false
	for _, ring := range pm.rings {
		n := len(ring)
		if n < 3 {
			continue
		}
		j := n - 1
		for i := 0; i < n; i++ {
			xi, yi := ring[i][0], ring[i][1]
			xj, yj := ring[j][0], ring[j][1]
			if (yi > y) != (yj > y) &&
				x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
			j = i
		}
	}
	return inside
}

// Envelope returns the bounding box [xMin, yMin, xMax, yMax] of
// the mask rings.
func (pm *PolygonMask) Envelope() []float64 {
	env := []float64{pm.rings[0][0][0], pm.rings[0][0][1], pm.rings[0][0][0], pm.rings[0][0][1]}
	for _, ring := range pm.rings {
		for _, pt := range ring {
			if pt[0] < env[0] {
				env[0] = pt[0]
			}
			if pt[1] < env[1] {
				env[1] = pt[1]
			}
			if pt[0] > env[2] {
				env[2] = pt[0]
			}
			if pt[1] > env[3] {
				env[3] = pt[1]
			}
		}
	}
	return env
}

// Area is the planar shoelace area of the mask in squared
// degrees, used for request size limits.
func (pm *PolygonMask) Area() float64 {
	total := 0.0
	for _, ring := range pm.rings {
		n := len(ring)
		if n < 3 {
			continue
		}
		area := 0.0
		j := n - 1
		for i := 0; i < n; i++ {
			area += ring[j][0]*ring[i][1] - ring[i][0]*ring[j][1]
			j = i
		}
		if area < 0 {
			area = -area
		}
		total += area / 2
	}
	return total
}
