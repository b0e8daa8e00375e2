package processor

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/edisonguo/jet"
	"github.com/nci/burnsky/utils"
	"golang.org/x/net/context"
)

// ReportRow is one severity band line of the rendered report.
type ReportRow struct {
	Band     string
	Count    int64
	Fraction float64
}

// SeverityReport is the template payload assembled from the
// merged shard statistics.
type SeverityReport struct {
	Collection       string
	PreDate          string
	PostDate         string
	Rows             []ReportRow
	MeanRBR          float64
	ClassifiedPixels int64
	MaskedPixels     int64
	TotalPixels      int64
	Insufficient     bool
}

// StatsMerger aggregates the partial shard statistics and
// renders the severity report through a jet template.
type StatsMerger struct {
	Context context.Context
	In      chan *SeverityStats
	Out     chan string
	Error   chan error
}

func NewStatsMerger(ctx context.Context, errChan chan error) *StatsMerger {
	return &StatsMerger{
		Context: ctx,
		In:      make(chan *SeverityStats, 100),
		Out:     make(chan string),
		Error:   errChan,
	}
}

func (sm *StatsMerger) Run(templateRoot string, templateFileName string, verbose bool) {
	if verbose {
		defer log.Printf("stats merger done")
	}
	defer close(sm.Out)

	var merged *SeverityStats
	for stats := range sm.In {
		if merged == nil {
			merged = stats
			continue
		}

		merged.Masked += stats.Masked
		merged.Outside += stats.Outside
		merged.Total += stats.Total
		merged.SumRBR += stats.SumRBR
		merged.NumRBR += stats.NumRBR
		merged.Insufficient = merged.Insufficient || stats.Insufficient
		if merged.BandCounts == nil {
			merged.BandCounts = stats.BandCounts
			merged.Bands = stats.Bands
		} else {
			for band, count := range stats.BandCounts {
				merged.BandCounts[band] += count
			}
		}
	}
	if merged == nil {
		return
	}

	report := buildReport(merged)

	view := jet.NewSet(jet.SafeWriter(func(w io.Writer, b []byte) {
		w.Write(b)
	}), templateRoot, "/")

	template, err := view.GetTemplate(templateFileName)
	if err != nil {
		sm.Error <- fmt.Errorf("stats merger failed to load template %s: %v", templateFileName, err)
		return
	}

	var resBuf bytes.Buffer
	vars := make(jet.VarMap)
	if err = template.Execute(&resBuf, vars, report); err != nil {
		sm.Error <- fmt.Errorf("stats merger template error: %v", err)
		return
	}

	sm.Out <- resBuf.String()
}

func buildReport(stats *SeverityStats) *SeverityReport {
	report := &SeverityReport{
		Collection:   stats.Collection,
		Insufficient: stats.Insufficient,
		MaskedPixels: stats.Masked,
		TotalPixels:  stats.Total - stats.Outside,
	}

	if stats.Pair != nil {
		report.PreDate = stats.Pair.Pre.DateFrom.Format(utils.ISOFormat)
		report.PostDate = stats.Pair.Post.DateFrom.Format(utils.ISOFormat)
	}

	for _, band := range stats.Bands {
		count := stats.BandCounts[band]
		row := ReportRow{Band: band, Count: count}
		if report.TotalPixels > 0 {
			row.Fraction = float64(count) / float64(report.TotalPixels)
		}
		report.Rows = append(report.Rows, row)
		report.ClassifiedPixels += count
	}

	if stats.NumRBR > 0 {
		report.MeanRBR = stats.SumRBR / float64(stats.NumRBR)
	}
	return report
}
