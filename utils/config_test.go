package utils

import (
	"math"
	"testing"
)

func validConfig() *Config {
	return &Config{
		ServiceConfig: ServiceConfig{
			CatalogAddress: "localhost:8888",
		},
		Analysis: AnalysisConfig{
			DataSource:   "/sentinel2/nbart",
			StartISODate: "2020-01-01T00:00:00.000Z",
			EndISODate:   "2020-01-31T00:00:00.000Z",
		},
	}
}

func TestValidateDefaults(t *testing.T) {
	config := validConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("valid config rejected, %v", err)
	}

	ana := config.Analysis
	if len(ana.ExcludedSCL) != len(DefaultExcludedSCL) {
		t.Errorf("excluded_scl should default")
	}
	if len(ana.Thresholds) != len(DefaultThresholds) {
		t.Errorf("thresholds should default")
	}
	if ana.SmoothingWindow != DefaultSmoothingWindow {
		t.Errorf("smoothing_window should default")
	}
	if ana.ConcLimit != DefaultConcLimit || ana.Timeout != DefaultTimeout {
		t.Errorf("conc_limit and timeout should default")
	}
	if ana.MaxWidth != DefaultMaxWidth || ana.MaxHeight != DefaultMaxHeight {
		t.Errorf("max output size should default")
	}
	if config.ServiceConfig.MaxConns != DefaultMaxConns {
		t.Errorf("max_conns should default")
	}
	if ana.StartDate.IsZero() || !ana.StartDate.Before(ana.EndDate) {
		t.Errorf("parsed analysis window is wrong: %v .. %v", ana.StartDate, ana.EndDate)
	}
}

func TestValidateRejections(t *testing.T) {
	breakages := []struct {
		name  string
		apply func(*Config)
	}{
		{"missing data_source", func(c *Config) { c.Analysis.DataSource = "" }},
		{"missing catalog_address", func(c *Config) { c.ServiceConfig.CatalogAddress = "" }},
		{"bad start date", func(c *Config) { c.Analysis.StartISODate = "2020-01-01" }},
		{"inverted window", func(c *Config) {
			c.Analysis.StartISODate, c.Analysis.EndISODate = c.Analysis.EndISODate, c.Analysis.StartISODate
		}},
		{"invalid SCL code", func(c *Config) { c.Analysis.ExcludedSCL = []int{3, 42} }},
		{"even smoothing window", func(c *Config) { c.Analysis.SmoothingWindow = 4 }},
		{"descending thresholds", func(c *Config) {
			c.Analysis.Thresholds = []SeverityThreshold{
				{MaxRBR: 0.5, Band: "a", Alpha: 0.5},
				{MaxRBR: 0.2, Band: "b", Alpha: 0.7},
				{MaxRBR: math.Inf(1), Band: "c", Alpha: 1.0},
			}
		}},
		{"bounded final threshold", func(c *Config) {
			c.Analysis.Thresholds = []SeverityThreshold{
				{MaxRBR: 0.5, Band: "a", Alpha: 0.5},
				{MaxRBR: 0.9, Band: "b", Alpha: 1.0},
			}
		}},
		{"alpha out of range", func(c *Config) {
			c.Analysis.Thresholds = []SeverityThreshold{
				{MaxRBR: 0.5, Band: "a", Alpha: 1.5},
				{MaxRBR: math.Inf(1), Band: "b", Alpha: 1.0},
			}
		}},
	}

	for _, tt := range breakages {
		config := validConfig()
		tt.apply(config)
		if err := config.Validate(); err == nil {
			t.Errorf("%s: config should be rejected", tt.name)
		}
	}
}
