package processor

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nci/burnsky/utils"
	"golang.org/x/net/context"
)

// CatalogResponse is the JSON payload returned by the scene
// catalog service for a ?scenes query.
type CatalogResponse struct {
	Scenes []Scene `json:"scenes"`
	Error  string  `json:"error,omitempty"`
}

// SceneIndexer queries the scene catalog for the observations
// inside the analysis window and reduces them to the pre/post
// pair. It runs once per request, never per pixel.
type SceneIndexer struct {
	Context    context.Context
	In         chan *GeoBurnRequest
	Out        chan *ScenePairRequest
	Error      chan error
	APIAddress string
}

func NewSceneIndexer(ctx context.Context, apiAddr string, errChan chan error) *SceneIndexer {
	return &SceneIndexer{
		Context:    ctx,
		In:         make(chan *GeoBurnRequest, 100),
		Out:        make(chan *ScenePairRequest, 100),
		Error:      errChan,
		APIAddress: apiAddr,
	}
}

func (p *SceneIndexer) Run(verbose bool) {
	defer close(p.Out)
	for geoReq := range p.In {
		select {
		case <-p.Context.Done():
			p.Error <- fmt.Errorf("scene indexer context has been cancelled: %v", p.Context.Err())
			return
		default:
			t0 := time.Now()

			url := strings.Replace(fmt.Sprintf("http://%s%s?scenes&time=%s&until=%s", p.APIAddress, geoReq.Collection, geoReq.StartTime.Format(utils.ISOFormat), geoReq.EndTime.Format(utils.ISOFormat)), " ", "%20", -1)
			if verbose {
				log.Println(url)
			}

			scenes, err := querySceneCatalog(url)
			if err != nil {
				p.Error <- err
				continue
			}

			pair := SelectScenePair(scenes, *geoReq.StartTime, *geoReq.EndTime)
			if pair == nil && verbose {
				log.Printf("scene indexer: insufficient scenes (%d) in window [%v, %v]", len(scenes), geoReq.StartTime, geoReq.EndTime)
			}

			if geoReq.MetricsCollector != nil {
				geoReq.MetricsCollector.Info.Indexer.Duration += time.Since(t0)
				geoReq.MetricsCollector.Info.Indexer.NumScenes = len(scenes)
				geoReq.MetricsCollector.Info.Indexer.URL.RawURL = url
			}

			p.Out <- &ScenePairRequest{GeoBurnRequest: geoReq, Pair: pair}
		}
	}
}

func querySceneCatalog(url string) ([]Scene, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET request to %s failed. Error: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body from %s. Error: %v", url, err)
	}

	var catalog CatalogResponse
	err = json.Unmarshal(body, &catalog)
	if err != nil {
		return nil, fmt.Errorf("problem parsing JSON response from %s. Error: %v", url, err)
	}
	if len(catalog.Error) > 0 {
		return nil, fmt.Errorf("catalog error from %s: %s", url, catalog.Error)
	}

	return catalog.Scenes, nil
}
