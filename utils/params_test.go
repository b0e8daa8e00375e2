package utils

import (
	"testing"
)

func TestOverlayParamsChecker(t *testing.T) {
	compREMap := CompileOverlayRegexMap()

	params := map[string][]string{
		"bbox":   {"148.0,-36.0,149.0,-35.0"},
		"width":  {"512"},
		"height": {"256"},
		"time":   {"2020-01-05T00:00:00.000Z"},
		"until":  {"2020-01-20T00:00:00.000Z"},
	}

	overlayParams, err := OverlayParamsChecker(params, compREMap)
	if err != nil {
		t.Fatalf("valid params rejected, %v", err)
	}
	if len(overlayParams.BBox) != 4 || overlayParams.BBox[0] != 148.0 || overlayParams.BBox[3] != -35.0 {
		t.Errorf("bbox parsed wrong: %v", overlayParams.BBox)
	}
	if overlayParams.Width == nil || *overlayParams.Width != 512 {
		t.Errorf("width parsed wrong")
	}
	if overlayParams.Height == nil || *overlayParams.Height != 256 {
		t.Errorf("height parsed wrong")
	}
	if overlayParams.Time == nil || overlayParams.Time.Day() != 5 {
		t.Errorf("time parsed wrong")
	}
	if overlayParams.Until == nil || overlayParams.Until.Day() != 20 {
		t.Errorf("until parsed wrong")
	}
}

func TestOverlayParamsCheckerOptional(t *testing.T) {
	compREMap := CompileOverlayRegexMap()

	overlayParams, err := OverlayParamsChecker(map[string][]string{
		"bbox": {"0,0,1,1"},
	}, compREMap)
	if err != nil {
		t.Fatalf("minimal params rejected, %v", err)
	}
	if overlayParams.Width != nil || overlayParams.Height != nil || overlayParams.Time != nil {
		t.Errorf("absent params should stay nil")
	}
}

func TestOverlayParamsCheckerRejections(t *testing.T) {
	compREMap := CompileOverlayRegexMap()

	badParams := []map[string][]string{
		{"bbox": {"148.0,-36.0,149.0"}},
		{"bbox": {"a,b,c,d"}},
		{"width": {"-1"}},
		{"width": {"12.5"}},
		{"height": {"abc"}},
		{"time": {"2020-01-05"}},
		{"time": {"2020-13-05T00:00:00.000Z"}},
		{"until": {"20 Jan 2020"}},
	}

	for _, params := range badParams {
		if _, err := OverlayParamsChecker(params, compREMap); err == nil {
			t.Errorf("params %v should be rejected", params)
		}
	}
}
