package processor

import (
	"time"

	"github.com/nci/burnsky/metrics"
	"github.com/nci/burnsky/utils"
	geo "github.com/nci/geometry"
	"golang.org/x/net/context"
)

// Scene is one satellite observation pass as reported by the
// scene catalog service.
type Scene struct {
	DateFrom    time.Time `json:"date_from"`
	DateTo      time.Time `json:"date_to"`
	GranulePath string    `json:"granule_path,omitempty"`
}

// ScenePair holds the two representative scenes of an analysis
// window: the earliest (pre-fire) and the latest (post-fire).
type ScenePair struct {
	Pre  Scene `json:"pre"`
	Post Scene `json:"post"`
}

// Sample bundles the band reflectances of one pixel in one scene.
// SCL is the Sentinel-2 scene classification code, DataMask the
// validity bit reported by the platform.
type Sample struct {
	NIR      float64
	SWIR     float64
	SCL      int
	DataMask int
}

// PixelRGBA is the evaluated overlay value of one pixel. Colour
// channels are bytes, opacity stays a float in [0,1] until the
// encoder quantises it.
type PixelRGBA struct {
	Red   uint8
	Green uint8
	Blue  uint8
	Alpha float64
}

// TransparentPixel is the terminal output for masked, invalid or
// degenerate pixels.
var TransparentPixel = PixelRGBA{}

type ConfigPayLoad struct {
	ExcludedSCL      []int
	Thresholds       []utils.SeverityThreshold
	SmoothingWindow  int
	IndexExpression  string
	ConcLimit        int
	MetricsCollector *metrics.MetricsCollector
}

// GeoBurnRequest describes one overlay or stats evaluation over
// a pixel grid. Polygon is only set for stats requests.
type GeoBurnRequest struct {
	ConfigPayLoad
	Collection    string
	BBox          []float64
	Height, Width int
	StartTime     *time.Time
	EndTime       *time.Time
	Polygon       geo.Geometry
}

// ScenePairRequest is the indexer output consumed by the tiler
// stages. A nil Pair signals insufficient scenes in the window;
// downstream stages render it fully transparent.
type ScenePairRequest struct {
	*GeoBurnRequest
	Pair *ScenePair
}

// SceneRaster carries the per-band sample planes of one scene
// over the request grid, row-major from the top-left pixel.
type SceneRaster struct {
	NIR           []float64
	SWIR          []float64
	SCL           []uint8
	DataMask      []uint8
	Height, Width int
}

// SampleSource supplies per-scene band rasters for a request
// grid. Implementations belong to the surrounding platform;
// rasterstore provides an in-memory one.
type SampleSource interface {
	Load(ctx context.Context, req *GeoBurnRequest, scene Scene) (*SceneRaster, error)
}

// BurnRaster is the evaluated RGBA overlay. Data is a row-major
// RGBA byte buffer of Width*Height*4 bytes. Empty rasters encode
// as fully transparent output.
type BurnRaster struct {
	Data          []uint8
	Height, Width int
	Empty         bool
}
