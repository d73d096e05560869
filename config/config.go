// Package config resolves the MEIGA-SR command line and INI configuration
// file into a single immutable run configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/log"
)

// Version is the MEIGA-SR release this build corresponds to.
const Version = "1.1.0"

// Mode selects single-sample analysis or tumour/normal paired analysis.
type Mode int

const (
	// Single analyzes one sample in isolation.
	Single Mode = iota
	// Paired analyzes a tumour sample against a matched normal.
	Paired
)

func (m Mode) String() string {
	if m == Paired {
		return "PAIRED"
	}
	return "SINGLE"
}

// RunKind selects the calling engine variant.
type RunKind int

const (
	// Standard runs the universal MEI caller ("call" subcommand).
	Standard RunKind = iota
	// Transduction runs the transduction caller ("call-tds" subcommand).
	Transduction
)

func (k RunKind) String() string {
	if k == Transduction {
		return "call-tds"
	}
	return "call"
}

// Config is the canonical run configuration. It is built exactly once per
// run by Resolve and must not be mutated afterwards. Field declaration
// order below is the order fields are reported by LogFields.
type Config struct {
	// Identity / provenance.
	Source      string
	Species     string
	Build       string
	AnnovarDir  string
	GermlineMEI string // empty when the file declares "none"
	Processes   int
	Debug       bool
	Predict     bool

	// BAM processing.
	TargetBins     string // empty when the file declares "none"
	BinSize        int
	FilterDup      bool
	ReadFilters    []string
	MinMAPQ        int
	MinClippingLen int
	TargetEvents   []string
	TargetRefs     []string

	// Clustering.
	MinClusterSize       int
	MaxClusterSize       int
	MaxBkpDist           int
	MinPercRcplOverlap   int
	EqualOrientBuffer    int
	OppositeOrientBuffer int

	// Filtering thresholds.
	MinReads         int
	MinNormalReads   int
	MinNbDiscordant  int
	MinNbClipping    int
	MinReadsRegionMQ float64
	MaxRegionLowMQ   float64
	MaxRegionSMS     float64

	// Transduction search.
	RetroTestWGS bool
	BlatClip     bool
	TdEnds       []string
	SrcBed       string // empty when the file declares "none"
	SrcFamilies  []string

	// Filesystem layout.
	OutDir string
	LogDir string

	// Dispatch inputs.
	RunKind   RunKind
	Mode      Mode
	Bam       string
	NormalBam string
	Reference string
	RefDir    string
}

// LogFields reports the resolved configuration key by key, in field
// declaration order, for run provenance.
func (c *Config) LogFields() {
	for _, f := range c.fields() {
		log.Printf("%s => %s", f.key, f.value)
	}
}

type field struct {
	key, value string
}

func (c *Config) fields() []field {
	return []field{
		{"source", c.Source},
		{"species", c.Species},
		{"build", c.Build},
		{"annovarDir", c.AnnovarDir},
		{"germlineMEI", orNone(c.GermlineMEI)},
		{"processes", fmt.Sprint(c.Processes)},
		{"debug", fmt.Sprint(c.Debug)},
		{"predict", fmt.Sprint(c.Predict)},
		{"targetBins", orNone(c.TargetBins)},
		{"binSize", fmt.Sprint(c.BinSize)},
		{"filterDup", fmt.Sprint(c.FilterDup)},
		{"readFilters", strings.Join(c.ReadFilters, ",")},
		{"minMAPQ", fmt.Sprint(c.MinMAPQ)},
		{"minCLIPPINGlen", fmt.Sprint(c.MinClippingLen)},
		{"targetEvents", strings.Join(c.TargetEvents, ",")},
		{"targetRefs", strings.Join(c.TargetRefs, ",")},
		{"minClusterSize", fmt.Sprint(c.MinClusterSize)},
		{"maxClusterSize", fmt.Sprint(c.MaxClusterSize)},
		{"maxBkpDist", fmt.Sprint(c.MaxBkpDist)},
		{"minPercRcplOverlap", fmt.Sprint(c.MinPercRcplOverlap)},
		{"equalOrientBuffer", fmt.Sprint(c.EqualOrientBuffer)},
		{"oppositeOrientBuffer", fmt.Sprint(c.OppositeOrientBuffer)},
		{"minReads", fmt.Sprint(c.MinReads)},
		{"minNormalReads", fmt.Sprint(c.MinNormalReads)},
		{"minNbDISCORDANT", fmt.Sprint(c.MinNbDiscordant)},
		{"minNbCLIPPING", fmt.Sprint(c.MinNbClipping)},
		{"minReadsRegionMQ", fmt.Sprint(c.MinReadsRegionMQ)},
		{"maxRegionlowMQ", fmt.Sprint(c.MaxRegionLowMQ)},
		{"maxRegionSMS", fmt.Sprint(c.MaxRegionSMS)},
		{"retroTestWGS", fmt.Sprint(c.RetroTestWGS)},
		{"blatClip", fmt.Sprint(c.BlatClip)},
		{"tdEnds", strings.Join(c.TdEnds, ",")},
		{"srcBed", orNone(c.SrcBed)},
		{"srcFamilies", strings.Join(c.SrcFamilies, ",")},
		{"outDir", c.OutDir},
		{"logDir", c.LogDir},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
