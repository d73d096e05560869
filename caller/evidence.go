package caller

import (
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"

	"github.com/meigalabs/meiga-sr/annot"
	"github.com/meigalabs/meiga-sr/bamio"
	"github.com/meigalabs/meiga-sr/config"
)

// EvidenceType labels the alignment signal supporting an insertion.
type EvidenceType int8

const (
	// Discordant marks a read pair aligned inconsistently with the
	// expected fragment layout.
	Discordant EvidenceType = iota
	// Clipping marks a soft-clipped read end at a putative breakpoint.
	Clipping
)

func (t EvidenceType) String() string {
	if t == Clipping {
		return "CLIPPING"
	}
	return "DISCORDANT"
}

// Evidence is one read-derived breakpoint observation.
type Evidence struct {
	Type    EvidenceType
	Pos     int // breakpoint estimate on the target reference
	Reverse bool
	MapQ    int
	// SA is set for secondary or supplementary alignments, the signal
	// behind the region secondary-mapping-score ceiling.
	SA bool
	// Mate coordinates, populated for discordant evidence. The
	// transduction caller matches these against source loci.
	MateRef string
	MatePos int
}

// readFilter drops a record when it returns true.
type readFilter struct {
	name string
	drop func(*sam.Record) bool
}

func flagFilter(name string, mask sam.Flags) readFilter {
	return readFilter{name: name, drop: func(r *sam.Record) bool { return r.Flags&mask != 0 }}
}

var readFilterRegistry = map[string]readFilter{
	"unmapped":      flagFilter("unmapped", sam.Unmapped),
	"mateUnmapped":  flagFilter("mateUnmapped", sam.MateUnmapped),
	"secondary":     flagFilter("secondary", sam.Secondary),
	"supplementary": flagFilter("supplementary", sam.Supplementary),
	"qcfail":        flagFilter("qcfail", sam.QCFail),
	"duplicate":     flagFilter("duplicate", sam.Duplicate),
}

// compileFilters resolves the configured read-filter names, preserving
// their order. Empty names (a trailing comma in the config list) are
// skipped. The duplicate filter is appended when noDuplicates is set and
// not already listed.
func compileFilters(conf *config.Config) ([]readFilter, error) {
	var filters []readFilter
	seenDup := false
	for _, name := range conf.ReadFilters {
		if name == "" {
			continue
		}
		f, ok := readFilterRegistry[name]
		if !ok {
			return nil, errors.Errorf("unknown read filter %q", name)
		}
		if name == "duplicate" {
			seenDup = true
		}
		filters = append(filters, f)
	}
	if conf.FilterDup && !seenDup {
		filters = append(filters, readFilterRegistry["duplicate"])
	}
	return filters, nil
}

// collectEvidence scans the BAM at path once and gathers discordant and
// clipping evidence per target reference. Reads are dropped by the named
// filters (in order) and the mapping-quality floor before inspection;
// when bins is non-nil, reads outside every target bin are ignored.
func collectEvidence(path string, conf *config.Config, filters []readFilter, bins *annot.Loci) (map[string][]Evidence, error) {
	target := make(map[string]bool, len(conf.TargetRefs))
	for _, r := range conf.TargetRefs {
		target[r] = true
	}
	byRef := make(map[string][]Evidence)

	err := bamio.Scan(path, func(_ *sam.Header, rec *sam.Record) error {
		if rec.Ref == nil || !target[rec.Ref.Name()] {
			return nil
		}
		for _, f := range filters {
			if f.drop(rec) {
				return nil
			}
		}
		if int(rec.MapQ) < conf.MinMAPQ {
			return nil
		}
		refName := rec.Ref.Name()
		if bins != nil && len(bins.Overlapping(refName, rec.Pos, rec.End())) == 0 {
			return nil
		}

		reverse := rec.Flags&sam.Reverse != 0
		sa := rec.Flags&(sam.Secondary|sam.Supplementary) != 0
		mapq := int(rec.MapQ)

		if discordant(rec) {
			// The insertion breakpoint sits on the inner side of the
			// anchor read: the end for forward reads, the start for
			// reverse reads.
			pos := rec.End()
			if reverse {
				pos = rec.Pos
			}
			ev := Evidence{
				Type:    Discordant,
				Pos:     pos,
				Reverse: reverse,
				MapQ:    mapq,
				SA:      sa,
			}
			if rec.MateRef != nil {
				ev.MateRef = rec.MateRef.Name()
				ev.MatePos = rec.MatePos
			}
			byRef[refName] = append(byRef[refName], ev)
		}

		if left, right := clipLengths(rec.Cigar); left >= conf.MinClippingLen || right >= conf.MinClippingLen {
			pos := rec.Pos
			if right >= conf.MinClippingLen && right >= left {
				pos = rec.End()
			}
			byRef[refName] = append(byRef[refName], Evidence{
				Type:    Clipping,
				Pos:     pos,
				Reverse: reverse,
				MapQ:    mapq,
				SA:      sa,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return byRef, nil
}

// discordant reports whether a mapped paired read is aligned
// inconsistently with the expected fragment layout: mate on another
// reference, mate unmapped, or pair not proper.
func discordant(rec *sam.Record) bool {
	if rec.Flags&sam.Paired == 0 || rec.Flags&sam.Unmapped != 0 {
		return false
	}
	if rec.Flags&sam.MateUnmapped != 0 {
		return true
	}
	if rec.MateRef != nil && rec.MateRef != rec.Ref {
		return true
	}
	return rec.Flags&sam.ProperPair == 0
}

// clipLengths returns the soft-clip run lengths at each end of the
// alignment.
func clipLengths(cigar sam.Cigar) (left, right int) {
	if len(cigar) == 0 {
		return 0, 0
	}
	if op := cigar[0]; op.Type() == sam.CigarSoftClipped {
		left = op.Len()
	}
	if op := cigar[len(cigar)-1]; op.Type() == sam.CigarSoftClipped {
		right = op.Len()
	}
	return left, right
}
