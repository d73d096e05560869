package caller

import (
	"context"
	"path/filepath"

	"github.com/grailbio/base/log"

	"github.com/meigalabs/meiga-sr/annot"
)

// TransductionCaller calls mobile-element transductions around a set of
// annotated source loci ("call-tds" subcommand).
type TransductionCaller struct {
	engine
	sources *annot.Loci
}

// Transduction is an insertion candidate attributed to a source locus.
// Source fields are "." for candidates admitted without a known source
// (whole-genome search).
type Transduction struct {
	Candidate
	SrcName   string
	SrcFamily string
	TdEnd     string
}

// Call runs the transduction pipeline and writes
// <outDir>/<sample>.transductions.tsv.
func (c *TransductionCaller) Call(ctx context.Context) error {
	conf := c.conf
	log.Printf("***** transduction calling started (%s mode) *****", conf.Mode)
	if err := c.loadResources(); err != nil {
		return err
	}
	if conf.SrcBed != "" {
		sources, err := annot.LoadBED(conf.SrcBed)
		if err != nil {
			return err
		}
		c.sources = sources.Restrict(conf.SrcFamilies)
		log.Printf("%d source loci loaded (families %v)", c.sources.Len(), conf.SrcFamilies)
	}
	cands, err := c.candidates(ctx)
	if err != nil {
		return err
	}
	tds := c.matchSources(cands)
	out := filepath.Join(conf.OutDir, sampleName(conf.Bam)+".transductions.tsv")
	if err := writeTransductions(out, tds); err != nil {
		return err
	}
	log.Printf("%d candidate transductions written to %s", len(tds), out)
	return nil
}

// matchSources attributes each candidate to a source locus through its
// discordant mate coordinates and applies the transduction-specific
// selectors: target transduction ends, clipping corroboration when BLAT
// validation is configured, and the whole-genome-vs-targeted policy for
// candidates with no known source.
func (c *TransductionCaller) matchSources(cands []Candidate) []Transduction {
	conf := c.conf
	var out []Transduction
	for _, cand := range cands {
		if conf.BlatClip && cand.NbClipping == 0 {
			// BLAT validation operates on clipped sequence; without
			// clipping evidence there is nothing to validate against.
			continue
		}
		locus, end, matched := c.findSource(cand)
		if !matched {
			if !conf.RetroTestWGS {
				continue
			}
			out = append(out, Transduction{Candidate: cand, SrcName: ".", SrcFamily: ".", TdEnd: "."})
			continue
		}
		if len(conf.TdEnds) > 0 && !contains(conf.TdEnds, end) {
			continue
		}
		out = append(out, Transduction{
			Candidate: cand,
			SrcName:   locus.Name,
			SrcFamily: locus.Family,
			TdEnd:     end,
		})
	}
	return out
}

// findSource looks for a source locus containing any discordant mate of
// the candidate and reports which end of the locus the transduced
// sequence extends from.
func (c *TransductionCaller) findSource(cand Candidate) (annot.Locus, string, bool) {
	if c.sources == nil {
		return annot.Locus{}, "", false
	}
	for _, ev := range cand.Events {
		if ev.Type != Discordant || ev.MateRef == "" {
			continue
		}
		hits := c.sources.Overlapping(ev.MateRef, ev.MatePos, ev.MatePos+1)
		if len(hits) == 0 {
			continue
		}
		locus := hits[0]
		end := "5prime"
		if ev.MatePos-locus.Start >= (locus.End-locus.Start)/2 {
			end = "3prime"
		}
		return locus, end, true
	}
	return annot.Locus{}, "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
