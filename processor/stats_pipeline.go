package processor

import (
	"golang.org/x/net/context"
)

// StatsPipeline composes the region statistics stages: scene
// indexer, stats evaluator and report merger.
type StatsPipeline struct {
	Context        context.Context
	Error          chan error
	CatalogAddress string
	Source         SampleSource
	TemplateRoot   string
	TemplateName   string
}

func InitStatsPipeline(ctx context.Context, catalogAddr string, source SampleSource, templateRoot, templateName string, errChan chan error) *StatsPipeline {
	return &StatsPipeline{
		Context:        ctx,
		Error:          errChan,
		CatalogAddress: catalogAddr,
		Source:         source,
		TemplateRoot:   templateRoot,
		TemplateName:   templateName,
	}
}

// Process evaluates one stats request and returns the channel
// delivering the rendered report.
func (sp *StatsPipeline) Process(geoReq *GeoBurnRequest, verbose bool) chan string {
	i := NewSceneIndexer(sp.Context, sp.CatalogAddress, sp.Error)
	go func() {
		i.In <- geoReq
		close(i.In)
	}()

	se := NewStatsEvaluator(sp.Context, sp.Source, sp.Error)
	sm := NewStatsMerger(sp.Context, sp.Error)

	se.In = i.Out
	sm.In = se.Out

	go i.Run(verbose)
	go se.Run(verbose)
	go sm.Run(sp.TemplateRoot, sp.TemplateName, verbose)

	return sm.Out
}
