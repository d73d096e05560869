// Package caller implements the two MEIGA-SR calling engines: the
// standard mobile-element-insertion caller and the transduction caller.
// Both consume the resolved run configuration and expose the single
// capability Call.
package caller

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"

	"github.com/meigalabs/meiga-sr/annot"
	"github.com/meigalabs/meiga-sr/config"
)

// Caller is the one capability the orchestrator dispatches on. Call
// writes its result artifacts under the configuration's output directory.
// Failures propagate to the caller; nothing is retried or cleaned up.
type Caller interface {
	Call(ctx context.Context) error
}

// New constructs the engine variant selected by the configuration's run
// kind. The single/paired axis is carried inside the configuration and
// fixed for the life of the engine.
func New(conf *config.Config) (Caller, error) {
	filters, err := compileFilters(conf)
	if err != nil {
		return nil, err
	}
	e := engine{conf: conf, filters: filters}
	if conf.RunKind == config.Transduction {
		return &TransductionCaller{engine: e}, nil
	}
	return &MEICaller{engine: e}, nil
}

// engine holds the state shared by both callers.
type engine struct {
	conf    *config.Config
	filters []readFilter

	bins    *annot.Loci // target-bin restriction, nil when unset
	exclude *annot.Loci // germline MEI exclusion, nil when unset
}

// loadResources reads the optional BED resources named by the
// configuration.
func (e *engine) loadResources() error {
	var err error
	if e.conf.TargetBins != "" {
		if e.bins, err = annot.LoadBED(e.conf.TargetBins); err != nil {
			return err
		}
		log.Debug.Printf("loaded %d target bins from %s", e.bins.Len(), e.conf.TargetBins)
	}
	if e.conf.GermlineMEI != "" {
		if e.exclude, err = annot.LoadBED(e.conf.GermlineMEI); err != nil {
			return err
		}
		log.Debug.Printf("loaded %d germline MEI exclusion regions from %s", e.exclude.Len(), e.conf.GermlineMEI)
	}
	return nil
}

// Candidate is a breakpoint cluster that survived all region filters,
// together with its region statistics.
type Candidate struct {
	Cluster
	MeanMapQ    float64
	LowMQFrac   float64
	SAFrac      float64
	NormalReads int
}

// lowMapQ is the mapping quality below which a read counts toward the
// region low-MQ ceiling.
const lowMapQ = 10

// candidates runs the full evidence → cluster → filter pipeline. The
// evidence scan is one sequential pass per sample; clustering and
// filtering run per target reference, bounded by the configured process
// count. Results keep target-reference order.
func (e *engine) candidates(ctx context.Context) ([]Candidate, error) {
	_ = ctx // the engine owns no cancellation points beyond file IO

	log.Printf("collecting evidence from %s", e.conf.Bam)
	tumor, err := collectEvidence(e.conf.Bam, e.conf, e.filters, e.bins)
	if err != nil {
		return nil, err
	}
	var normal map[string][]Evidence
	if e.conf.Mode == config.Paired {
		log.Printf("collecting matched-normal evidence from %s", e.conf.NormalBam)
		if normal, err = collectEvidence(e.conf.NormalBam, e.conf, e.filters, e.bins); err != nil {
			return nil, err
		}
	}

	refs := e.conf.TargetRefs
	perRef := make([][]Candidate, len(refs))
	parallelism := e.conf.Processes
	if parallelism > len(refs) {
		parallelism = len(refs)
	}
	if parallelism < 1 {
		parallelism = 1
	}
	err = traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(refs)) / parallelism
		endIdx := ((jobIdx + 1) * len(refs)) / parallelism
		for i := startIdx; i < endIdx; i++ {
			ref := refs[i]
			clusters := clusterEvidence(ref, tumor[ref], e.conf)
			log.Debug.Printf("%s: %d evidence, %d clusters", ref, len(tumor[ref]), len(clusters))
			perRef[i] = e.filterClusters(clusters, normal[ref])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, cands := range perRef {
		out = append(out, cands...)
	}
	return out, nil
}

// filterClusters applies the evidence-count thresholds, region
// mapping-quality filters, germline exclusion and, in paired mode, the
// matched-normal subtraction.
func (e *engine) filterClusters(clusters []Cluster, normal []Evidence) []Candidate {
	conf := e.conf
	var out []Candidate
	for _, c := range clusters {
		if c.NbDiscordant < conf.MinNbDiscordant && c.NbClipping < conf.MinNbClipping {
			continue
		}
		if c.Size() < conf.MinReads {
			continue
		}

		var mapqSum, lowMQ, sa int
		for _, ev := range c.Events {
			mapqSum += ev.MapQ
			if ev.MapQ < lowMapQ {
				lowMQ++
			}
			if ev.SA {
				sa++
			}
		}
		n := float64(c.Size())
		cand := Candidate{
			Cluster:   c,
			MeanMapQ:  float64(mapqSum) / n,
			LowMQFrac: float64(lowMQ) / n,
			SAFrac:    float64(sa) / n,
		}
		if cand.MeanMapQ < conf.MinReadsRegionMQ {
			continue
		}
		if cand.LowMQFrac > conf.MaxRegionLowMQ {
			continue
		}
		if cand.SAFrac > conf.MaxRegionSMS {
			continue
		}
		if e.exclude != nil && len(e.exclude.Overlapping(c.Ref, c.Start, c.End+1)) > 0 {
			continue
		}
		if conf.Mode == config.Paired {
			lo, hi := c.Start-conf.MaxBkpDist, c.End+conf.MaxBkpDist
			for _, ev := range normal {
				if ev.Pos >= lo && ev.Pos <= hi {
					cand.NormalReads++
				}
			}
			if cand.NormalReads >= conf.MinNormalReads {
				continue
			}
		}
		out = append(out, cand)
	}
	return out
}
