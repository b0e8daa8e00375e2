package main

/* burnsky is a web server computing burn severity overlays from
   paired satellite reflectance scenes. A fixed pre/post fire
   analysis window is configured per deployment; the server picks
   the two representative scenes from the catalog service, runs
   the per-pixel severity evaluation over the requested grid and
   renders the result as a colour/transparency PNG for map
   compositing. A region statistics endpoint reports per-band
   pixel counts over a GeoJSON polygon.
   This server depends on two collaborators: the scene catalog
   service which registers the observation passes, and a sample
   source supplying the per-pixel band rasters. */

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"context"

	"github.com/nci/burnsky/metrics"
	proc "github.com/nci/burnsky/processor"
	"github.com/nci/burnsky/rasterstore"
	"github.com/nci/burnsky/utils"

	_ "net/http/pprof"

	reuseport "github.com/kavu/go_reuseport"
	geo "github.com/nci/geometry"
	"golang.org/x/net/netutil"
)

var config *utils.Config

var (
	port             = flag.Int("p", 8080, "Server listening port.")
	serverDataDir    = flag.String("data_dir", utils.DataDir, "Server data directory.")
	serverConfigFile = flag.String("conf", "config.yaml", "Server config file.")
	serverLogDir     = flag.String("log_dir", "", "Server log directory.")
	validateConfig   = flag.Bool("check_conf", false, "Validate server config file.")
	verbose          = flag.Bool("v", false, "Verbose mode for more server outputs.")
)

var reOverlayMap = utils.CompileOverlayRegexMap()

var (
	Error *log.Logger
	Info  *log.Logger
)

var metricsLogger metrics.Logger

var sampleSource proc.SampleSource

const statsGridSize = 512
const statsTemplateName = "severity_report.tpl"

// init initialises the loggers, loads and validates the config
// file and sets up the metrics logger. This is the first
// function to be called in main.
func init() {
	Error = log.New(os.Stderr, "BSKY: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "BSKY: ", log.Ldate|log.Ltime|log.Lshortfile)

	flag.Parse()

	utils.DataDir = *serverDataDir

	conf, err := utils.LoadConfigFile(*serverConfigFile, *verbose)
	if err != nil {
		Error.Printf("Error in loading config file: %v\n", err)
		panic(err)
	}

	if *validateConfig {
		os.Exit(0)
	}

	config = conf
	sampleSource = rasterstore.NewFileSource()

	if len(*serverLogDir) > 0 {
		if *serverLogDir == "-" {
			metricsLogger = metrics.NewStdoutLogger()
		} else {
			maxLogFileSize := int64(0)
			if val, ok := os.LookupEnv("BURNSKY_MAX_LOG_FILE_SIZE"); ok {
				valInt, e := strconv.ParseInt(val, 10, 64)
				if e == nil {
					maxLogFileSize = valInt
				} else {
					Error.Printf("invalid BURNSKY_MAX_LOG_FILE_SIZE: %v", e)
				}
			}

			maxLogFiles := -1
			if val, ok := os.LookupEnv("BURNSKY_MAX_LOG_FILES"); ok {
				valInt, e := strconv.ParseInt(val, 10, 32)
				if e == nil {
					maxLogFiles = int(valInt)
				} else {
					Error.Printf("invalid BURNSKY_MAX_LOG_FILES: %v", e)
				}
			}

			metricsLogger = metrics.NewFileLogger(*serverLogDir, maxLogFileSize, maxLogFiles, *verbose)
		}
	}
}

// newGeoBurnRequest assembles the evaluation payload shared by
// the overlay and stats handlers from the static analysis
// config.
func newGeoBurnRequest(metricsCollector *metrics.MetricsCollector) *proc.GeoBurnRequest {
	ana := &config.Analysis
	startTime := ana.StartDate
	endTime := ana.EndDate
	return &proc.GeoBurnRequest{
		ConfigPayLoad: proc.ConfigPayLoad{
			ExcludedSCL:      ana.ExcludedSCL,
			Thresholds:       ana.Thresholds,
			SmoothingWindow:  ana.SmoothingWindow,
			IndexExpression:  ana.IndexExpression,
			ConcLimit:        ana.ConcLimit,
			MetricsCollector: metricsCollector,
		},
		Collection: ana.DataSource,
		StartTime:  &startTime,
		EndTime:    &endTime,
	}
}

func serveOverlay(ctx context.Context, params utils.OverlayParams, r *http.Request, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	reqURL := r.URL.String()

	if len(params.BBox) != 4 {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Request %s should contain a valid 'bbox' parameter.", reqURL), 400)
		return
	}
	if params.Height == nil || params.Width == nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Request %s should contain valid 'width' and 'height' parameters.", reqURL), 400)
		return
	}
	if *params.Height <= 0 || *params.Width <= 0 {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Request %s width and height must be positive.", reqURL), 400)
		return
	}
	if *params.Height > config.Analysis.MaxHeight || *params.Width > config.Analysis.MaxWidth {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Requested width/height is too large, max width:%d, height:%d", config.Analysis.MaxWidth, config.Analysis.MaxHeight), 400)
		return
	}

	geoReq := newGeoBurnRequest(metricsCollector)
	geoReq.BBox = params.BBox
	geoReq.Width = *params.Width
	geoReq.Height = *params.Height
	if params.Time != nil {
		geoReq.StartTime = params.Time
	}
	if params.Until != nil {
		geoReq.EndTime = params.Until
	}

	ctx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()
	errChan := make(chan error, 100)

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), time.Duration(config.Analysis.Timeout)*time.Second)
	defer timeoutCancel()

	bp := proc.InitBurnPipeline(ctx, config.ServiceConfig.CatalogAddress, sampleSource, errChan)

	select {
	case res := <-bp.Process(geoReq, *verbose):
		if res == nil {
			metricsCollector.Info.HTTPStatus = 500
			http.Error(w, "overlay rendering failed", 500)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(res)
	case err := <-errChan:
		Info.Printf("Error in the pipeline: %v\n", err)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
	case <-ctx.Done():
		Error.Printf("Context cancelled with message: %v\n", ctx.Err())
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, ctx.Err().Error(), 500)
	case <-timeoutCtx.Done():
		Error.Printf("overlay pipeline timed out, threshold:%v seconds", config.Analysis.Timeout)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, "overlay request timed out", 500)
	}
}

func serveScenes(ctx context.Context, params utils.OverlayParams, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	geoReq := newGeoBurnRequest(metricsCollector)
	if params.Time != nil {
		geoReq.StartTime = params.Time
	}
	if params.Until != nil {
		geoReq.EndTime = params.Until
	}

	ctx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()
	errChan := make(chan error, 100)

	bp := proc.InitBurnPipeline(ctx, config.ServiceConfig.CatalogAddress, sampleSource, errChan)

	select {
	case pairReq := <-bp.SelectScenes(geoReq, *verbose):
		w.Header().Set("Content-Type", "application/json")
		if pairReq == nil || pairReq.Pair == nil {
			w.Write([]byte(`{"error": "insufficient scenes in the analysis window"}`))
			return
		}
		payload, err := json.Marshal(pairReq.Pair)
		if err != nil {
			metricsCollector.Info.HTTPStatus = 500
			http.Error(w, err.Error(), 500)
			return
		}
		w.Write(payload)
	case err := <-errChan:
		Info.Printf("Error in the pipeline: %v\n", err)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
	case <-ctx.Done():
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, ctx.Err().Error(), 500)
	}
}

func serveStats(ctx context.Context, r *http.Request, w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	body, err := ioutil.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Error reading stats request body: %v", err), 400)
		return
	}

	var featCol geo.FeatureCollection
	err = json.Unmarshal(body, &featCol)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("The request does not contain a valid GeoJSON feature collection: %v", err), 400)
		return
	}
	if len(featCol.Features) == 0 {
		Info.Printf("The request does not contain the 'feature' property.\n")
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, "The request does not contain the 'feature' property", 400)
		return
	}

	geom := featCol.Features[0].Geometry
	switch geom.(type) {
	case *geo.Polygon, *geo.MultiPolygon:
	default:
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, "Geometry not supported. Only Features containing Polygon or MultiPolygon are available.", 400)
		return
	}

	mask, err := proc.NewPolygonMask(geom)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, err.Error(), 400)
		return
	}

	area := mask.Area()
	if *verbose {
		log.Println("Requested polygon has an area of", area)
	}
	if area == 0.0 || area > config.Analysis.MaxArea {
		Info.Printf("The requested area %.02f, is too large.\n", area)
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, "The requested area is too large. Please try with a smaller one.", 400)
		return
	}

	geoReq := newGeoBurnRequest(metricsCollector)
	geoReq.Polygon = geom
	geoReq.BBox = mask.Envelope()
	geoReq.Width = statsGridSize
	geoReq.Height = statsGridSize

	ctx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()
	errChan := make(chan error, 100)

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), time.Duration(config.Analysis.Timeout)*time.Second)
	defer timeoutCancel()

	sp := proc.InitStatsPipeline(ctx, config.ServiceConfig.CatalogAddress, sampleSource, config.ServiceConfig.TemplateRoot, statsTemplateName, errChan)

	select {
	case res := <-sp.Process(geoReq, *verbose):
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(res))
	case err := <-errChan:
		Info.Printf("Error in the pipeline: %v\n", err)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
	case <-ctx.Done():
		Error.Printf("Context cancelled with message: %v\n", ctx.Err())
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, ctx.Err().Error(), 500)
	case <-timeoutCtx.Done():
		Error.Printf("stats pipeline timed out, threshold:%v seconds", config.Analysis.Timeout)
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, "stats request timed out", 500)
	}
}

// serveLegend renders the severity colour ramp with the band
// base alphas applied, for map legend display.
func serveLegend(w http.ResponseWriter, metricsCollector *metrics.MetricsCollector) {
	ramp, err := proc.GradientRGBAPalette(proc.DefaultLegendPalette)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 500
		http.Error(w, err.Error(), 500)
		return
	}

	const legendHeight = 32
	img := image.NewRGBA(image.Rect(0, 0, len(ramp), legendHeight))
	for x, colour := range ramp {
		for y := 0; y < legendHeight; y++ {
			i := (y*len(ramp) + x) * 4
			img.Pix[i] = colour.R
			img.Pix[i+1] = colour.G
			img.Pix[i+2] = colour.B
			img.Pix[i+3] = colour.A
		}
	}

	w.Header().Set("Content-Type", "image/png")
	err = png.Encode(w, img)
	if err != nil {
		Error.Printf("Error encoding legend: %v\n", err)
	}
}

func generalHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	if *verbose {
		Info.Printf("%s\n", r.URL.String())
	}
	ctx := r.Context()

	metricsCollector := metrics.NewMetricsCollector(metricsLogger)
	defer metricsCollector.Log()

	t0 := time.Now()
	metricsCollector.Info.ReqTime = t0.Format(utils.ISOFormat)
	defer func() { metricsCollector.Info.ReqDuration = time.Since(t0) }()

	reqURL, e := url.QueryUnescape(r.URL.String())
	if e == nil {
		metricsCollector.Info.URL.RawURL = reqURL
	} else {
		metricsCollector.Info.URL.RawURL = r.URL.String()
	}

	metricsCollector.Info.RemoteAddr = utils.ParseRemoteAddr(r)
	metricsCollector.Info.HTTPStatus = 200

	if r.URL.Path == "/stats" {
		if r.Method != "POST" {
			metricsCollector.Info.HTTPStatus = 400
			http.Error(w, "stats requests must POST a GeoJSON feature collection", 400)
			return
		}
		serveStats(ctx, r, w, metricsCollector)
		return
	}

	query, err := utils.ParseQuery(r.URL.RawQuery)
	if err != nil {
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Failed to parse query: %v", err), 400)
		return
	}

	params, err := utils.OverlayParamsChecker(query, reOverlayMap)
	if err != nil {
		Error.Printf("%s\n", err)
		metricsCollector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("Malformed request: %v", err), 400)
		return
	}

	switch r.URL.Path {
	case "/overlay":
		serveOverlay(ctx, params, r, w, metricsCollector)
	case "/scenes":
		serveScenes(ctx, params, w, metricsCollector)
	case "/legend":
		serveLegend(w, metricsCollector)
	default:
		metricsCollector.Info.HTTPStatus = 404
		http.Error(w, fmt.Sprintf("%s not recognised.", r.URL.Path), 404)
	}
}

func main() {
	http.HandleFunc("/overlay", generalHandler)
	http.HandleFunc("/scenes", generalHandler)
	http.HandleFunc("/stats", generalHandler)
	http.HandleFunc("/legend", generalHandler)

	listener, err := reuseport.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *port))
	if err != nil {
		Error.Printf("Failed to listen on port %d: %v\n", *port, err)
		panic(err)
	}
	listener = netutil.LimitListener(listener, config.ServiceConfig.MaxConns)

	Info.Printf("BurnSky is ready")
	log.Fatal(http.Serve(listener, nil))
}
