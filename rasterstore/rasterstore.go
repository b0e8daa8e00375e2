// Package rasterstore provides SampleSource implementations for
// the burn pipeline: an in-memory store for tests and embedders,
// and a file-backed store reading pre-extracted band granules.
package rasterstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	proc "github.com/nci/burnsky/processor"
	"golang.org/x/net/context"
)

// MemSource keeps scene rasters keyed by granule path. Rasters
// whose grid differs from the request are resampled.
type MemSource struct {
	mu      sync.RWMutex
	rasters map[string]*proc.SceneRaster
}

func NewMemSource() *MemSource {
	return &MemSource{rasters: make(map[string]*proc.SceneRaster)}
}

func (ms *MemSource) Register(granulePath string, raster *proc.SceneRaster) {
	ms.mu.Lock()
	ms.rasters[granulePath] = raster
	ms.mu.Unlock()
}

func (ms *MemSource) Load(ctx context.Context, req *proc.GeoBurnRequest, scene proc.Scene) (*proc.SceneRaster, error) {
	ms.mu.RLock()
	raster, ok := ms.rasters[scene.GranulePath]
	ms.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no raster registered for granule %s", scene.GranulePath)
	}
	return Regrid(raster, req.Width, req.Height), nil
}

// FileSource reads granule files written by the band extraction
// step. The format is a small fixed header followed by the four
// row-major band planes:
//
//	magic "BSR1", uint32 width, uint32 height,
//	float32[w*h] NIR, float32[w*h] SWIR,
//	uint8[w*h] SCL, uint8[w*h] dataMask
//
// all little-endian. Loaded granules are cached per path.
type FileSource struct {
	mu    sync.Mutex
	cache map[string]*proc.SceneRaster
}

func NewFileSource() *FileSource {
	return &FileSource{cache: make(map[string]*proc.SceneRaster)}
}

const granuleMagic = "BSR1"

func (fs *FileSource) Load(ctx context.Context, req *proc.GeoBurnRequest, scene proc.Scene) (*proc.SceneRaster, error) {
	fs.mu.Lock()
	raster, ok := fs.cache[scene.GranulePath]
	fs.mu.Unlock()

	if !ok {
		var err error
		raster, err = ReadGranule(scene.GranulePath)
		if err != nil {
			return nil, err
		}
		fs.mu.Lock()
		fs.cache[scene.GranulePath] = raster
		fs.mu.Unlock()
	}

	return Regrid(raster, req.Width, req.Height), nil
}

func ReadGranule(granulePath string) (*proc.SceneRaster, error) {
	f, err := os.Open(granulePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open granule %s: %v", granulePath, err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	_, err = io.ReadFull(f, magic)
	if err != nil || string(magic) != granuleMagic {
		return nil, fmt.Errorf("granule %s has no %s header", granulePath, granuleMagic)
	}

	var dims [2]uint32
	err = binary.Read(f, binary.LittleEndian, &dims)
	if err != nil {
		return nil, fmt.Errorf("failed to read granule %s dimensions: %v", granulePath, err)
	}
	width, height := int(dims[0]), int(dims[1])
	if width <= 0 || height <= 0 || width*height > 1<<28 {
		return nil, fmt.Errorf("granule %s has implausible dimensions %dx%d", granulePath, width, height)
	}

	nPixels := width * height
	nir32 := make([]float32, nPixels)
	swir32 := make([]float32, nPixels)
	scl := make([]uint8, nPixels)
	dataMask := make([]uint8, nPixels)

	for _, plane := range []interface{}{nir32, swir32, scl, dataMask} {
		err = binary.Read(f, binary.LittleEndian, plane)
		if err != nil {
			return nil, fmt.Errorf("failed to read granule %s band plane: %v", granulePath, err)
		}
	}

	raster := &proc.SceneRaster{
		NIR:      make([]float64, nPixels),
		SWIR:     make([]float64, nPixels),
		SCL:      scl,
		DataMask: dataMask,
		Width:    width,
		Height:   height,
	}
	for i := 0; i < nPixels; i++ {
		raster.NIR[i] = float64(nir32[i])
		raster.SWIR[i] = float64(swir32[i])
	}
	return raster, nil
}

// WriteGranule serialises a scene raster in the FileSource
// format, used by extraction tooling and tests.
func WriteGranule(granulePath string, raster *proc.SceneRaster) error {
	f, err := os.Create(granulePath)
	if err != nil {
		return fmt.Errorf("failed to create granule %s: %v", granulePath, err)
	}
	defer f.Close()

	_, err = f.Write([]byte(granuleMagic))
	if err != nil {
		return err
	}
	err = binary.Write(f, binary.LittleEndian, [2]uint32{uint32(raster.Width), uint32(raster.Height)})
	if err != nil {
		return err
	}

	nPixels := raster.Width * raster.Height
	nir32 := make([]float32, nPixels)
	swir32 := make([]float32, nPixels)
	for i := 0; i < nPixels; i++ {
		nir32[i] = float32(raster.NIR[i])
		swir32[i] = float32(raster.SWIR[i])
	}

	for _, plane := range []interface{}{nir32, swir32, raster.SCL, raster.DataMask} {
		err = binary.Write(f, binary.LittleEndian, plane)
		if err != nil {
			return err
		}
	}
	return nil
}

// Regrid resamples a scene raster onto a width x height grid by
// nearest neighbour. Matching grids return the input untouched.
func Regrid(raster *proc.SceneRaster, width, height int) *proc.SceneRaster {
	if raster.Width == width && raster.Height == height {
		return raster
	}

	out := &proc.SceneRaster{
		NIR:      make([]float64, width*height),
		SWIR:     make([]float64, width*height),
		SCL:      make([]uint8, width*height),
		DataMask: make([]uint8, width*height),
		Width:    width,
		Height:   height,
	}

	for y := 0; y < height; y++ {
		srcY := y * raster.Height / height
		for x := 0; x < width; x++ {
			srcX := x * raster.Width / width
			src := srcY*raster.Width + srcX
			dst := y*width + x
			out.NIR[dst] = raster.NIR[src]
			out.SWIR[dst] = raster.SWIR[src]
			out.SCL[dst] = raster.SCL[src]
			out.DataMask[dst] = raster.DataMask[src]
		}
	}
	return out
}
