// Package annot loads BED-derived annotation resources: germline-MEI
// exclusion regions, target bins, and the named source loci the
// transduction caller searches around. Intervals are held per chromosome
// in interval trees so the engines can query overlap per evidence cluster.
package annot

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/store/interval"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Locus is one BED entry. Name and Family come from columns 4 and 5 when
// present; both are empty for plain 3-column BEDs.
type Locus struct {
	Chrom  string
	Start  int // 0-based, inclusive
	End    int // 0-based, exclusive
	Name   string
	Family string
}

type entry struct {
	Locus
	id uintptr
}

func (e entry) Overlap(b interval.IntRange) bool {
	return e.End > b.Start && e.Start < b.End
}
func (e entry) ID() uintptr              { return e.id }
func (e entry) Range() interval.IntRange { return interval.IntRange{Start: e.Start, End: e.End} }

type query struct{ start, end int }

func (q query) Overlap(b interval.IntRange) bool {
	return q.end > b.Start && q.start < b.End
}

// Loci is an immutable set of BED loci indexed by chromosome.
type Loci struct {
	byChrom map[string][]Locus
	trees   map[string]*interval.IntTree
	n       int
}

// LoadBED reads a BED file (plain or gzip, by .gz suffix) into a Loci.
// Lines starting with '#', "track" or "browser" are skipped.
func LoadBED(path string) (*Loci, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening BED %s", path)
	}
	defer f.Close() // nolint: errcheck
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "opening gzipped BED %s", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}

	l := &Loci{byChrom: map[string][]Locus{}, trees: map[string]*interval.IntTree{}}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 3 {
			return nil, errors.Errorf("%s:%d: BED line has %d columns, want >= 3", path, lineNo, len(cols))
		}
		start, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: bad start", path, lineNo)
		}
		end, err := strconv.Atoi(cols[2])
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: bad end", path, lineNo)
		}
		if end < start {
			return nil, errors.Errorf("%s:%d: end %d before start %d", path, lineNo, end, start)
		}
		locus := Locus{Chrom: cols[0], Start: start, End: end}
		if len(cols) > 3 {
			locus.Name = cols[3]
		}
		if len(cols) > 4 {
			locus.Family = cols[4]
		}
		l.add(locus)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading BED %s", path)
	}
	return l, nil
}

func (l *Loci) add(locus Locus) {
	l.byChrom[locus.Chrom] = append(l.byChrom[locus.Chrom], locus)
	t := l.trees[locus.Chrom]
	if t == nil {
		t = &interval.IntTree{}
		l.trees[locus.Chrom] = t
	}
	l.n++
	// Insert errors only on duplicate IDs; the counter makes IDs unique.
	_ = t.Insert(entry{Locus: locus, id: uintptr(l.n)}, false)
}

// Len returns the number of loci.
func (l *Loci) Len() int { return l.n }

// Overlapping returns the loci overlapping [start, end) on chrom.
func (l *Loci) Overlapping(chrom string, start, end int) []Locus {
	t := l.trees[chrom]
	if t == nil {
		return nil
	}
	var out []Locus
	for _, iv := range t.Get(query{start: start, end: end}) {
		out = append(out, iv.(entry).Locus)
	}
	return out
}

// Contains reports whether any locus covers pos on chrom.
func (l *Loci) Contains(chrom string, pos int) bool {
	return len(l.Overlapping(chrom, pos, pos+1)) > 0
}

// Restrict returns the subset of loci whose Family is in families. An
// empty family list keeps everything.
func (l *Loci) Restrict(families []string) *Loci {
	if len(families) == 0 {
		return l
	}
	keep := map[string]bool{}
	for _, f := range families {
		keep[f] = true
	}
	out := &Loci{byChrom: map[string][]Locus{}, trees: map[string]*interval.IntTree{}}
	for _, loci := range l.byChrom {
		for _, locus := range loci {
			if keep[locus.Family] {
				out.add(locus)
			}
		}
	}
	return out
}
