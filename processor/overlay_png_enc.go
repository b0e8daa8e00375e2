package processor

import (
	"bytes"
	"image"
	"image/png"
)

// OverlayEncoder renders an evaluated burn raster into a PNG
// with per-pixel alpha. Marker rasters from insufficient scene
// windows encode as a fully transparent image of the requested
// size.
type OverlayEncoder struct {
	In    chan *BurnRaster
	Out   chan []byte
	Error chan error
}

func NewOverlayEncoder(errChan chan error) *OverlayEncoder {
	return &OverlayEncoder{
		In:    make(chan *BurnRaster, 100),
		Out:   make(chan []byte, 100),
		Error: errChan,
	}
}

func (enc *OverlayEncoder) Run() {
	defer close(enc.Out)

	for raster := range enc.In {
		img := image.NewRGBA(image.Rect(0, 0, raster.Width, raster.Height))
		if !raster.Empty && len(raster.Data) == len(img.Pix) {
			copy(img.Pix, raster.Data)
		}

		buf := new(bytes.Buffer)
		err := png.Encode(buf, img)
		if err != nil {
			enc.Error <- err
			enc.Out <- nil
			return
		}
		enc.Out <- buf.Bytes()
	}
}
