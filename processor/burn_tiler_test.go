package processor

import (
	"fmt"
	"testing"
	"time"

	"github.com/nci/burnsky/metrics"
	"golang.org/x/net/context"
)

type fakeSource struct {
	rasters map[string]*SceneRaster
}

func (fs *fakeSource) Load(ctx context.Context, req *GeoBurnRequest, scene Scene) (*SceneRaster, error) {
	raster, ok := fs.rasters[scene.GranulePath]
	if !ok {
		return nil, fmt.Errorf("no raster for %s", scene.GranulePath)
	}
	return raster, nil
}

func uniformRaster(width, height int, nir, swir float64, scl uint8) *SceneRaster {
	n := width * height
	raster := &SceneRaster{
		NIR:      make([]float64, n),
		SWIR:     make([]float64, n),
		SCL:      make([]uint8, n),
		DataMask: make([]uint8, n),
		Width:    width,
		Height:   height,
	}
	for i := 0; i < n; i++ {
		raster.NIR[i] = nir
		raster.SWIR[i] = swir
		raster.SCL[i] = scl
		raster.DataMask[i] = 1
	}
	return raster
}

func testPairRequest(width, height int) *ScenePairRequest {
	payload := newTestPayload()
	startTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	return &ScenePairRequest{
		GeoBurnRequest: &GeoBurnRequest{
			ConfigPayLoad: *payload,
			Collection:    "/test",
			BBox:          []float64{0, 0, 1, 1},
			Width:         width,
			Height:        height,
			StartTime:     &startTime,
			EndTime:       &endTime,
		},
		Pair: &ScenePair{
			Pre:  Scene{GranulePath: "pre", DateFrom: startTime},
			Post: Scene{GranulePath: "post", DateFrom: endTime},
		},
	}
}

func TestBurnTilerSeverelyBurnt(t *testing.T) {
	source := &fakeSource{rasters: map[string]*SceneRaster{
		"pre":  uniformRaster(4, 4, 0.5, 0.1, 4),
		"post": uniformRaster(4, 4, 0.2, 0.3, 5),
	}}

	errChan := make(chan error, 10)
	tiler := NewBurnTiler(context.Background(), source, errChan)
	go func() {
		tiler.In <- testPairRequest(4, 4)
		close(tiler.In)
	}()
	go tiler.Run(false)

	raster := <-tiler.Out
	if raster == nil || raster.Empty {
		t.Fatalf("tiler should produce a non-empty raster")
	}
	if len(raster.Data) != 4*4*4 {
		t.Fatalf("raster buffer size mismatch: %d", len(raster.Data))
	}

	// every pixel is High severity pure red at full opacity
	for i := 0; i < 4*4; i++ {
		r, g, b, a := raster.Data[i*4], raster.Data[i*4+1], raster.Data[i*4+2], raster.Data[i*4+3]
		if r != 255 || g != 0 || b != 0 || a != 255 {
			t.Errorf("pixel %d expecting (255,0,0,255), actual (%d,%d,%d,%d)", i, r, g, b, a)
			break
		}
	}
}

func TestBurnTilerInsufficientScenes(t *testing.T) {
	errChan := make(chan error, 10)
	tiler := NewBurnTiler(context.Background(), &fakeSource{}, errChan)

	pairReq := testPairRequest(8, 8)
	pairReq.Pair = nil

	go func() {
		tiler.In <- pairReq
		close(tiler.In)
	}()
	go tiler.Run(false)

	raster := <-tiler.Out
	if raster == nil || !raster.Empty {
		t.Fatalf("insufficient scenes should produce an empty marker raster")
	}
	if raster.Width != 8 || raster.Height != 8 {
		t.Errorf("marker raster should keep the request grid, actual %dx%d", raster.Width, raster.Height)
	}
}

func TestBurnTilerMaskedSurface(t *testing.T) {
	// SCL 8 (cloud medium probability) is in the exclusion set
	source := &fakeSource{rasters: map[string]*SceneRaster{
		"pre":  uniformRaster(2, 2, 0.5, 0.1, 8),
		"post": uniformRaster(2, 2, 0.2, 0.3, 5),
	}}

	errChan := make(chan error, 10)
	tiler := NewBurnTiler(context.Background(), source, errChan)

	pairReq := testPairRequest(2, 2)
	collector := metrics.NewMetricsCollector(nil)
	pairReq.MetricsCollector = collector

	go func() {
		tiler.In <- pairReq
		close(tiler.In)
	}()
	go tiler.Run(false)

	raster := <-tiler.Out
	for i, v := range raster.Data {
		if v != 0 {
			t.Errorf("masked surface should be fully transparent, byte %d is %d", i, v)
			break
		}
	}

	if collector.Info.Eval.NumMaskedPixels != 4 {
		t.Errorf("expecting 4 masked pixels in the metrics, actual %d", collector.Info.Eval.NumMaskedPixels)
	}
	if collector.Info.Eval.NumPixels != 4 {
		t.Errorf("expecting 4 evaluated pixels in the metrics, actual %d", collector.Info.Eval.NumPixels)
	}
}

func TestBurnTilerZeroConcLimit(t *testing.T) {
	source := &fakeSource{rasters: map[string]*SceneRaster{
		"pre":  uniformRaster(2, 2, 0.5, 0.1, 4),
		"post": uniformRaster(2, 2, 0.2, 0.3, 5),
	}}

	errChan := make(chan error, 10)
	tiler := NewBurnTiler(context.Background(), source, errChan)

	pairReq := testPairRequest(2, 2)
	pairReq.ConcLimit = 0

	go func() {
		tiler.In <- pairReq
		close(tiler.In)
	}()
	go tiler.Run(false)

	raster := <-tiler.Out
	if raster == nil || raster.Empty {
		t.Fatalf("zero concurrency limit should still produce a raster")
	}
	if raster.Data[3] != 255 {
		t.Errorf("expecting an opaque first pixel, actual alpha byte %d", raster.Data[3])
	}
}
