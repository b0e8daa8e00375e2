package processor

import (
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/net/context"
)

// BurnTiler turns a selected scene pair into an RGBA overlay
// raster. Pixels are independent of each other, so rows are
// fanned out across workers under a ConcLimiter.
type BurnTiler struct {
	Context context.Context
	In      chan *ScenePairRequest
	Out     chan *BurnRaster
	Error   chan error
	Source  SampleSource
}

func NewBurnTiler(ctx context.Context, source SampleSource, errChan chan error) *BurnTiler {
	return &BurnTiler{
		Context: ctx,
		In:      make(chan *ScenePairRequest, 100),
		Out:     make(chan *BurnRaster, 100),
		Error:   errChan,
		Source:  source,
	}
}

func (t *BurnTiler) Run(verbose bool) {
	defer close(t.Out)
	for pairReq := range t.In {
		select {
		case <-t.Context.Done():
			t.Error <- fmt.Errorf("burn tiler context has been cancelled: %v", t.Context.Err())
			return
		default:
			raster, err := t.evaluatePair(pairReq, verbose)
			if err != nil {
				t.Error <- err
				return
			}
			t.Out <- raster
		}
	}
}

func (t *BurnTiler) evaluatePair(pairReq *ScenePairRequest, verbose bool) (*BurnRaster, error) {
	geoReq := pairReq.GeoBurnRequest

	if pairReq.Pair == nil {
		return &BurnRaster{Width: geoReq.Width, Height: geoReq.Height, Empty: true}, nil
	}

	preRaster, err := t.Source.Load(t.Context, geoReq, pairReq.Pair.Pre)
	if err != nil {
		return nil, fmt.Errorf("loading pre-fire raster failed: %v", err)
	}
	postRaster, err := t.Source.Load(t.Context, geoReq, pairReq.Pair.Post)
	if err != nil {
		return nil, fmt.Errorf("loading post-fire raster failed: %v", err)
	}

	for _, raster := range []*SceneRaster{preRaster, postRaster} {
		if raster.Width != geoReq.Width || raster.Height != geoReq.Height {
			return nil, fmt.Errorf("scene raster size %dx%d does not match request grid %dx%d", raster.Width, raster.Height, geoReq.Width, geoReq.Height)
		}
	}

	evaluator, err := NewPixelEvaluator(&geoReq.ConfigPayLoad)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	data := make([]uint8, geoReq.Width*geoReq.Height*4)
	var nMasked int64

	concLimit := geoReq.ConcLimit
	if concLimit < 1 {
		concLimit = 1
	}
	cLimiter := NewConcLimiter(concLimit)
	for y := 0; y < geoReq.Height; y++ {
		cLimiter.Increase()
		go func(y int) {
			defer cLimiter.Decrease()
			samples := make([]Sample, 2)
			for x := 0; x < geoReq.Width; x++ {
				i := y*geoReq.Width + x
				samples[0] = Sample{NIR: preRaster.NIR[i], SWIR: preRaster.SWIR[i], SCL: int(preRaster.SCL[i]), DataMask: int(preRaster.DataMask[i])}
				samples[1] = Sample{NIR: postRaster.NIR[i], SWIR: postRaster.SWIR[i], SCL: int(postRaster.SCL[i]), DataMask: int(postRaster.DataMask[i])}

				px := evaluator.Evaluate(samples)
				if px == TransparentPixel {
					atomic.AddInt64(&nMasked, 1)
				}
				data[i*4] = px.Red
				data[i*4+1] = px.Green
				data[i*4+2] = px.Blue
				data[i*4+3] = uint8(math.Round(px.Alpha * 255))
			}
		}(y)
	}
	cLimiter.Wait()

	if geoReq.MetricsCollector != nil {
		geoReq.MetricsCollector.Info.Eval.Duration += time.Since(t0)
		geoReq.MetricsCollector.Info.Eval.NumPixels += int64(geoReq.Width * geoReq.Height)
		geoReq.MetricsCollector.Info.Eval.NumMaskedPixels += nMasked
	}
	if verbose {
		log.Printf("burn tiler: %dx%d pixels evaluated in %v", geoReq.Width, geoReq.Height, time.Since(t0))
	}

	return &BurnRaster{Data: data, Width: geoReq.Width, Height: geoReq.Height}, nil
}
