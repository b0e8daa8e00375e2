package processor

import (
	"golang.org/x/net/context"
)

// BurnPipeline composes the overlay stages: scene indexer,
// burn tiler and PNG encoder. Stage errors funnel into the
// shared Error channel the caller selects on.
type BurnPipeline struct {
	Context        context.Context
	Error          chan error
	CatalogAddress string
	Source         SampleSource
}

func InitBurnPipeline(ctx context.Context, catalogAddr string, source SampleSource, errChan chan error) *BurnPipeline {
	return &BurnPipeline{
		Context:        ctx,
		Error:          errChan,
		CatalogAddress: catalogAddr,
		Source:         source,
	}
}

// Process evaluates one overlay request and returns the channel
// delivering the encoded PNG.
func (bp *BurnPipeline) Process(geoReq *GeoBurnRequest, verbose bool) chan []byte {
	i := NewSceneIndexer(bp.Context, bp.CatalogAddress, bp.Error)
	go func() {
		i.In <- geoReq
		close(i.In)
	}()

	t := NewBurnTiler(bp.Context, bp.Source, bp.Error)
	enc := NewOverlayEncoder(bp.Error)

	t.In = i.Out
	enc.In = t.Out

	go i.Run(verbose)
	go t.Run(verbose)
	go enc.Run()

	return enc.Out
}

// SelectScenes runs the indexer stage alone, for callers that
// only need the chosen pre/post pair.
func (bp *BurnPipeline) SelectScenes(geoReq *GeoBurnRequest, verbose bool) chan *ScenePairRequest {
	i := NewSceneIndexer(bp.Context, bp.CatalogAddress, bp.Error)
	go func() {
		i.In <- geoReq
		close(i.In)
	}()

	go i.Run(verbose)
	return i.Out
}
