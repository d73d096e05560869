package caller

import (
	"sort"

	"github.com/meigalabs/meiga-sr/config"
)

// Cluster is a group of evidence spatially consistent with one insertion
// event on a single reference.
type Cluster struct {
	Ref          string
	Start, End   int
	Events       []Evidence
	NbDiscordant int
	NbClipping   int
}

// Size returns the number of supporting reads.
func (c *Cluster) Size() int { return len(c.Events) }

func (c *Cluster) add(ev Evidence) {
	if len(c.Events) == 0 || ev.Pos < c.Start {
		c.Start = ev.Pos
	}
	if len(c.Events) == 0 || ev.Pos > c.End {
		c.End = ev.Pos
	}
	c.Events = append(c.Events, ev)
	if ev.Type == Discordant {
		c.NbDiscordant++
	} else {
		c.NbClipping++
	}
}

// clusterEvidence groups the reference's evidence into breakpoint
// clusters. Evidence is position-sorted and joined greedily: a new
// observation extends the open cluster while it falls within the
// breakpoint distance, widened by the orientation-agreement buffer
// (equal-orientation evidence tolerates less spread than opposite
// orientation, which brackets the insertion from both sides). Adjacent
// clusters whose breakpoint windows reciprocally overlap at or above the
// configured percentage are then merged, and clusters outside the
// [minClusterSize, maxClusterSize] bounds are discarded.
func clusterEvidence(ref string, evs []Evidence, conf *config.Config) []Cluster {
	if len(evs) == 0 {
		return nil
	}
	sorted := make([]Evidence, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })

	var clusters []Cluster
	cur := Cluster{Ref: ref}
	cur.add(sorted[0])
	last := sorted[0]
	for _, ev := range sorted[1:] {
		reach := conf.MaxBkpDist + conf.EqualOrientBuffer
		if ev.Reverse != last.Reverse {
			reach = conf.MaxBkpDist + conf.OppositeOrientBuffer
		}
		if ev.Pos-cur.End <= reach {
			cur.add(ev)
		} else {
			clusters = append(clusters, cur)
			cur = Cluster{Ref: ref}
			cur.add(ev)
		}
		last = ev
	}
	clusters = append(clusters, cur)

	clusters = mergeOverlapping(clusters, conf.MinPercRcplOverlap, conf.MaxBkpDist)

	out := clusters[:0]
	for _, c := range clusters {
		if c.Size() >= conf.MinClusterSize && c.Size() <= conf.MaxClusterSize {
			out = append(out, c)
		}
	}
	return out
}

// mergeOverlapping folds neighbouring clusters together when their
// breakpoint windows, each span widened by pad on both sides, reciprocally
// overlap by at least minPerc percent.
func mergeOverlapping(clusters []Cluster, minPerc, pad int) []Cluster {
	if len(clusters) < 2 {
		return clusters
	}
	out := []Cluster{clusters[0]}
	for _, c := range clusters[1:] {
		prev := &out[len(out)-1]
		if reciprocalOverlap(prev.Start-pad, prev.End+pad, c.Start-pad, c.End+pad) >= minPerc {
			for _, ev := range c.Events {
				prev.add(ev)
			}
		} else {
			out = append(out, c)
		}
	}
	return out
}

// reciprocalOverlap returns the overlap of [aStart,aEnd] and
// [bStart,bEnd] as a percentage of the larger span. Single-point spans
// count as length one.
func reciprocalOverlap(aStart, aEnd, bStart, bEnd int) int {
	lo, hi := aStart, aEnd
	if bStart > lo {
		lo = bStart
	}
	if bEnd < hi {
		hi = bEnd
	}
	ol := hi - lo + 1
	if ol <= 0 {
		return 0
	}
	span := aEnd - aStart + 1
	if b := bEnd - bStart + 1; b > span {
		span = b
	}
	return ol * 100 / span
}
