package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/grailbio/base/sync/multierror"
	"github.com/pkg/errors"
)

// section is the one INI section MEIGA-SR reads its configuration from.
const section = "MEIGA-SR"

// maxErrors bounds how many configuration violations are collected before
// reporting. The whole schema is validated in one pass so a single run
// surfaces every broken key, not just the first.
const maxErrors = 64

// Error describes a single invalid or missing configuration key.
type Error struct {
	Key   string
	Value string
	Msg   string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config key %q: %s", e.Key, e.Msg)
	}
	return fmt.Sprintf("config key %q: %s: %q", e.Key, e.Msg, e.Value)
}

// Args carries the command-line half of the configuration.
type Args struct {
	Kind       RunKind
	ConfigFile string
	Bam        string
	NormalBam  string
	OutDir     string
	Processes  int
	Debug      bool
	Predict    bool

	// Refs expands the "ALL" target-reference sentinel into the ordered
	// reference names of the primary sample (usually bamio.Refs).
	Refs func(bamPath string) ([]string, error)
	// Now supplies the debug-run timestamp. Nil means time.Now.
	Now func() time.Time
}

// Resolve merges the command line and the INI configuration file into one
// Config. All schema violations are collected and reported together. The
// returned Config is complete and must be treated as read-only.
func Resolve(args Args) (*Config, error) {
	f, err := ini.Load(args.ConfigFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", args.ConfigFile)
	}
	sec, err := f.GetSection(section)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s has no [%s] section", args.ConfigFile, section)
	}
	r := &reader{sec: sec, errs: multierror.NewMultiError(maxErrors)}

	c := &Config{
		Source:      "MEIGA-SR-" + Version,
		Species:     r.str("species"),
		Build:       r.str("build"),
		AnnovarDir:  r.str("annovarDir"),
		GermlineMEI: r.optStr("germlineMEI"),
		Processes:   args.Processes,
		Debug:       args.Debug,
		Predict:     args.Predict,

		TargetBins:     r.optStr("targetBins"),
		BinSize:        r.integer("binSize"),
		FilterDup:      r.boolean("noDuplicates"),
		ReadFilters:    r.list("readFilters"),
		MinMAPQ:        r.integer("minMAPQ"),
		MinClippingLen: r.integer("minCLIPPINGlen"),
		TargetEvents:   []string{"DISCORDANT", "CLIPPING"},

		MinClusterSize:       r.integer("minClusterSize"),
		MaxClusterSize:       r.integer("maxClusterSize"),
		MaxBkpDist:           r.integer("BKPdist"),
		MinPercRcplOverlap:   r.integer("minPercOverlap"),
		EqualOrientBuffer:    r.integer("equalOrientBuffer"),
		OppositeOrientBuffer: r.integer("oppositeOrientBuffer"),

		MinReads:         r.integer("minReads"),
		MinNormalReads:   r.integer("minNormalReads"),
		MinReadsRegionMQ: r.float("minReadsRegionMQ"),
		MaxRegionLowMQ:   r.float("maxRegionlowMQ"),
		MaxRegionSMS:     r.float("maxRegionSMS"),

		RetroTestWGS: r.boolean("wgsData"),
		BlatClip:     r.boolean("blatClip"),
		TdEnds:       r.list("transductionEnds"),
		SrcBed:       r.optStr("sourceBed"),
		SrcFamilies:  r.list("srcFamilies"),

		RunKind:   args.Kind,
		Bam:       args.Bam,
		NormalBam: args.NormalBam,
		Reference: r.str("reference"),
		RefDir:    r.str("refDir"),
	}

	// Both cluster-evidence minima follow minClusterSize; they have no
	// config keys of their own.
	c.MinNbDiscordant = c.MinClusterSize
	c.MinNbClipping = c.MinClusterSize

	c.Mode = Single
	if c.NormalBam != "" {
		c.Mode = Paired
	}

	// A wildcard target list is expanded from the sample header before the
	// record is finalized, preserving header order.
	if rawRefs := r.str("refs"); rawRefs == "ALL" {
		if r.errs.Err() == nil {
			refs, err := args.Refs(args.Bam)
			if err != nil {
				return nil, errors.Wrapf(err, "expanding refs=ALL from %s", args.Bam)
			}
			if len(refs) == 0 {
				r.errs.Add(&Error{Key: "refs", Msg: "expanded to empty reference list"})
			}
			c.TargetRefs = refs
		}
	} else {
		c.TargetRefs = splitList(rawRefs)
	}

	// The debug timestamp is generated exactly once: output and log
	// directories must land under the same timestamped root even if the
	// clock ticks mid-resolution.
	c.OutDir = args.OutDir
	if args.Debug {
		now := args.Now
		if now == nil {
			now = time.Now
		}
		c.OutDir = filepath.Join(args.OutDir, now().Format("20060102150405"))
	}
	c.LogDir = filepath.Join(c.OutDir, "logs")

	if c.Processes < 1 {
		r.errs.Add(&Error{Key: "processes", Value: fmt.Sprint(c.Processes), Msg: "must be >= 1"})
	}
	r.nonNegative("binSize", c.BinSize)
	r.nonNegative("minMAPQ", c.MinMAPQ)
	r.nonNegative("minCLIPPINGlen", c.MinClippingLen)
	r.nonNegative("minClusterSize", c.MinClusterSize)
	r.nonNegative("maxClusterSize", c.MaxClusterSize)
	r.nonNegative("BKPdist", c.MaxBkpDist)
	r.nonNegative("minPercOverlap", c.MinPercRcplOverlap)
	r.nonNegative("equalOrientBuffer", c.EqualOrientBuffer)
	r.nonNegative("oppositeOrientBuffer", c.OppositeOrientBuffer)
	r.nonNegative("minReads", c.MinReads)
	r.nonNegative("minNormalReads", c.MinNormalReads)
	r.nonNegativeFloat("minReadsRegionMQ", c.MinReadsRegionMQ)
	r.nonNegativeFloat("maxRegionlowMQ", c.MaxRegionLowMQ)
	r.nonNegativeFloat("maxRegionSMS", c.MaxRegionSMS)

	if err := r.errs.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// reader reads typed values out of the INI section, recording every
// violation instead of failing on the first one.
type reader struct {
	sec  *ini.Section
	errs *multierror.MultiError
}

func (r *reader) raw(key string) (string, bool) {
	if !r.sec.HasKey(key) {
		r.errs.Add(&Error{Key: key, Msg: "required key missing"})
		return "", false
	}
	return r.sec.Key(key).String(), true
}

func (r *reader) str(key string) string {
	v, _ := r.raw(key)
	return v
}

// optStr maps the literal sentinel "none" to the empty string.
func (r *reader) optStr(key string) string {
	v, _ := r.raw(key)
	if v == "none" {
		return ""
	}
	return v
}

func (r *reader) integer(key string) int {
	if _, ok := r.raw(key); !ok {
		return 0
	}
	v, err := r.sec.Key(key).Int()
	if err != nil {
		r.errs.Add(&Error{Key: key, Value: r.sec.Key(key).String(), Msg: "not an integer"})
		return 0
	}
	return v
}

func (r *reader) float(key string) float64 {
	if _, ok := r.raw(key); !ok {
		return 0
	}
	v, err := r.sec.Key(key).Float64()
	if err != nil {
		r.errs.Add(&Error{Key: key, Value: r.sec.Key(key).String(), Msg: "not a number"})
		return 0
	}
	return v
}

func (r *reader) boolean(key string) bool {
	if _, ok := r.raw(key); !ok {
		return false
	}
	v, err := r.sec.Key(key).Bool()
	if err != nil {
		r.errs.Add(&Error{Key: key, Value: r.sec.Key(key).String(), Msg: "not a boolean"})
		return false
	}
	return v
}

func (r *reader) list(key string) []string {
	v, ok := r.raw(key)
	if !ok {
		return nil
	}
	return splitList(v)
}

func (r *reader) nonNegative(key string, v int) {
	if v < 0 {
		r.errs.Add(&Error{Key: key, Value: fmt.Sprint(v), Msg: "must not be negative"})
	}
}

func (r *reader) nonNegativeFloat(key string, v float64) {
	if v < 0 {
		r.errs.Add(&Error{Key: key, Value: fmt.Sprint(v), Msg: "must not be negative"})
	}
}

// splitList splits a comma-separated value and trims each element. Empty
// elements are kept: a trailing comma yields a trailing empty string.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
