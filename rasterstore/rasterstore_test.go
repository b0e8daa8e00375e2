package rasterstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	proc "github.com/nci/burnsky/processor"
	"golang.org/x/net/context"
)

func testRaster(width, height int) *proc.SceneRaster {
	n := width * height
	raster := &proc.SceneRaster{
		NIR:      make([]float64, n),
		SWIR:     make([]float64, n),
		SCL:      make([]uint8, n),
		DataMask: make([]uint8, n),
		Width:    width,
		Height:   height,
	}
	for i := 0; i < n; i++ {
		raster.NIR[i] = float64(i) * 0.001
		raster.SWIR[i] = float64(n-i) * 0.001
		raster.SCL[i] = uint8(i % 12)
		raster.DataMask[i] = uint8(i % 2)
	}
	return raster
}

func TestGranuleRoundTrip(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "rasterstore_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	granulePath := filepath.Join(tmpDir, "scene.bsr")
	in := testRaster(16, 8)
	if err := WriteGranule(granulePath, in); err != nil {
		t.Fatalf("writing granule failed, %v", err)
	}

	out, err := ReadGranule(granulePath)
	if err != nil {
		t.Fatalf("reading granule failed, %v", err)
	}

	if out.Width != in.Width || out.Height != in.Height {
		t.Fatalf("granule grid %dx%d, expecting %dx%d", out.Width, out.Height, in.Width, in.Height)
	}
	for i := 0; i < in.Width*in.Height; i++ {
		if float32(out.NIR[i]) != float32(in.NIR[i]) || float32(out.SWIR[i]) != float32(in.SWIR[i]) {
			t.Fatalf("band value mismatch at pixel %d", i)
		}
		if out.SCL[i] != in.SCL[i] || out.DataMask[i] != in.DataMask[i] {
			t.Fatalf("classification or mask mismatch at pixel %d", i)
		}
	}
}

func TestReadGranuleRejectsBadHeader(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "rasterstore_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	granulePath := filepath.Join(tmpDir, "bogus.bsr")
	if err := ioutil.WriteFile(granulePath, []byte("not a granule"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadGranule(granulePath); err == nil {
		t.Errorf("bogus header should fail to parse")
	}
	if _, err := ReadGranule(filepath.Join(tmpDir, "missing.bsr")); err == nil {
		t.Errorf("missing granule should fail to open")
	}
}

func TestRegrid(t *testing.T) {
	in := testRaster(4, 4)

	same := Regrid(in, 4, 4)
	if same != in {
		t.Errorf("matching grid should return the input raster")
	}

	down := Regrid(in, 2, 2)
	if down.Width != 2 || down.Height != 2 {
		t.Fatalf("resampled grid %dx%d, expecting 2x2", down.Width, down.Height)
	}
	// nearest neighbour picks source pixels (0,0),(2,0),(0,2),(2,2)
	expected := []int{0, 2, 8, 10}
	for i, src := range expected {
		if down.NIR[i] != in.NIR[src] || down.SCL[i] != in.SCL[src] {
			t.Errorf("resampled pixel %d should come from source pixel %d", i, src)
		}
	}

	up := Regrid(in, 8, 8)
	if up.NIR[0] != in.NIR[0] || up.NIR[63] != in.NIR[15] {
		t.Errorf("upsampled corners should repeat source corners")
	}
}

func TestMemSourceLoad(t *testing.T) {
	ms := NewMemSource()
	ms.Register("/granules/a", testRaster(4, 4))

	req := &proc.GeoBurnRequest{Width: 2, Height: 2}
	raster, err := ms.Load(context.Background(), req, proc.Scene{GranulePath: "/granules/a"})
	if err != nil {
		t.Fatalf("load failed, %v", err)
	}
	if raster.Width != 2 || raster.Height != 2 {
		t.Errorf("loaded raster should be resampled to the request grid")
	}

	if _, err := ms.Load(context.Background(), req, proc.Scene{GranulePath: "/granules/b"}); err == nil {
		t.Errorf("unregistered granule should fail")
	}
}
