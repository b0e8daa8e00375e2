package utils

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v2"
)

var EtcDir = "."
var DataDir = "."

const ISOFormat = "2006-01-02T15:04:05.000Z"

// ServiceConfig holds the server-wide settings shared
// by all request handlers.
type ServiceConfig struct {
	OWSHostname    string `yaml:"ows_hostname"`
	CatalogAddress string `yaml:"catalog_address"`
	MaxConns       int    `yaml:"max_conns"`
	TempDir        string `yaml:"temp_dir"`
	TemplateRoot   string `yaml:"template_root"`
}

// SeverityThreshold is one row of the burn severity
// classification table. MaxRBR is the inclusive upper
// bound of the band, Alpha the base opacity assigned
// to pixels classified into it.
type SeverityThreshold struct {
	MaxRBR float64 `yaml:"max_rbr"`
	Band   string  `yaml:"band"`
	Alpha  float64 `yaml:"alpha"`
}

// AnalysisConfig describes one burn severity analysis:
// the scene collection, the fixed pre/post fire time
// window and the per-pixel evaluation constants.
type AnalysisConfig struct {
	DataSource      string              `yaml:"data_source"`
	StartISODate    string              `yaml:"start_isodate"`
	EndISODate      string              `yaml:"end_isodate"`
	ExcludedSCL     []int               `yaml:"excluded_scl"`
	Thresholds      []SeverityThreshold `yaml:"thresholds"`
	SmoothingWindow int                 `yaml:"smoothing_window"`
	IndexExpression string              `yaml:"index_expression"`
	ConcLimit       int                 `yaml:"conc_limit"`
	Timeout         int                 `yaml:"timeout"`
	MaxWidth        int                 `yaml:"max_width"`
	MaxHeight       int                 `yaml:"max_height"`
	MaxArea         float64             `yaml:"max_area"`

	StartDate time.Time `yaml:"-"`
	EndDate   time.Time `yaml:"-"`
}

// Config is the root of the server configuration loaded
// from the yaml file passed on the command line.
type Config struct {
	ServiceConfig ServiceConfig  `yaml:"service"`
	Analysis      AnalysisConfig `yaml:"analysis"`
}

// DefaultExcludedSCL lists the Sentinel-2 scene classification
// codes masked out of the severity overlay: no data, saturated,
// cloud shadows, water, unclassified, clouds, cirrus, snow.
var DefaultExcludedSCL = []int{0, 1, 3, 6, 7, 8, 9, 10, 11}

// DefaultThresholds is the standard RBR severity table.
// Maxima ascend and the terminal row is unbounded.
var DefaultThresholds = []SeverityThreshold{
	{MaxRBR: 0.10, Band: "Unburnt", Alpha: 0.0},
	{MaxRBR: 0.27, Band: "Low", Alpha: 0.3},
	{MaxRBR: 0.44, Band: "Moderate", Alpha: 0.5},
	{MaxRBR: 0.66, Band: "Moderate-High", Alpha: 0.7},
	{MaxRBR: math.Inf(1), Band: "High", Alpha: 1.0},
}

const DefaultSmoothingWindow = 3
const DefaultConcLimit = 16
const DefaultTimeout = 60
const DefaultMaxWidth = 2048
const DefaultMaxHeight = 2048
const DefaultMaxArea = 100.0
const DefaultMaxConns = 512

var envVarRegexp = regexp.MustCompile(`\$\{[A-Za-z0-9_]+\}`)

func expandEnvVars(raw []byte) []byte {
	return envVarRegexp.ReplaceAllFunc(raw, func(match []byte) []byte {
		return []byte(os.Getenv(string(match[2 : len(match)-1])))
	})
}

// LoadConfigFile loads, env-expands and validates the yaml
// config file at configPath.
func LoadConfigFile(configPath string, verbose bool) (*Config, error) {
	cfg, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error while reading config file: %s. Error: %v", configPath, err)
	}

	config := &Config{}
	err = yaml.Unmarshal(expandEnvVars(cfg), config)
	if err != nil {
		return nil, fmt.Errorf("error at decoding yaml config file %s: %v", configPath, err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	if verbose {
		dump, e := yaml.Marshal(config)
		if e == nil {
			fmt.Printf("%s\n", string(dump))
		}
	}
	return config, nil
}

// Validate fills in defaults and checks the invariants the
// evaluation pipeline relies upon. The threshold table must
// ascend strictly and terminate with an unbounded row so that
// every finite RBR classifies into exactly one band.
func (config *Config) Validate() error {
	ana := &config.Analysis

	if len(ana.DataSource) == 0 {
		return fmt.Errorf("analysis config: data_source is mandatory")
	}

	startDate, err := time.Parse(ISOFormat, ana.StartISODate)
	if err != nil {
		return fmt.Errorf("analysis config: invalid start_isodate '%s': %v", ana.StartISODate, err)
	}
	endDate, err := time.Parse(ISOFormat, ana.EndISODate)
	if err != nil {
		return fmt.Errorf("analysis config: invalid end_isodate '%s': %v", ana.EndISODate, err)
	}
	if !startDate.Before(endDate) {
		return fmt.Errorf("analysis config: start_isodate must precede end_isodate")
	}
	ana.StartDate = startDate
	ana.EndDate = endDate

	if ana.ExcludedSCL == nil {
		ana.ExcludedSCL = DefaultExcludedSCL
	}
	for _, code := range ana.ExcludedSCL {
		if code < 0 || code > 11 {
			return fmt.Errorf("analysis config: invalid SCL code %d in excluded_scl", code)
		}
	}

	if len(ana.Thresholds) == 0 {
		ana.Thresholds = DefaultThresholds
	}
	for i, thr := range ana.Thresholds {
		if i > 0 && thr.MaxRBR <= ana.Thresholds[i-1].MaxRBR {
			return fmt.Errorf("analysis config: threshold maxima must ascend, row %d", i)
		}
		if thr.Alpha < 0 || thr.Alpha > 1 {
			return fmt.Errorf("analysis config: threshold alpha out of [0,1], row %d", i)
		}
	}
	if !math.IsInf(ana.Thresholds[len(ana.Thresholds)-1].MaxRBR, 1) {
		return fmt.Errorf("analysis config: final threshold row must be unbounded (max_rbr: .inf)")
	}

	if ana.SmoothingWindow == 0 {
		ana.SmoothingWindow = DefaultSmoothingWindow
	}
	if ana.SmoothingWindow < 1 || ana.SmoothingWindow%2 == 0 {
		return fmt.Errorf("analysis config: smoothing_window must be a positive odd number")
	}

	if ana.ConcLimit <= 0 {
		ana.ConcLimit = DefaultConcLimit
	}
	if ana.Timeout <= 0 {
		ana.Timeout = DefaultTimeout
	}
	if ana.MaxWidth <= 0 {
		ana.MaxWidth = DefaultMaxWidth
	}
	if ana.MaxHeight <= 0 {
		ana.MaxHeight = DefaultMaxHeight
	}
	if ana.MaxArea <= 0 {
		ana.MaxArea = DefaultMaxArea
	}

	if config.ServiceConfig.MaxConns <= 0 {
		config.ServiceConfig.MaxConns = DefaultMaxConns
	}
	if len(config.ServiceConfig.TempDir) == 0 {
		config.ServiceConfig.TempDir = os.TempDir()
	}
	if len(config.ServiceConfig.TemplateRoot) == 0 {
		config.ServiceConfig.TemplateRoot = DataDir + "/templates"
	}
	if len(config.ServiceConfig.CatalogAddress) == 0 {
		return fmt.Errorf("service config: catalog_address is mandatory")
	}

	return nil
}
