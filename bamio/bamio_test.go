package bamio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBAM writes a BAM with the given header and records to a temp file.
func writeBAM(t *testing.T, header *sam.Header, recs []*sam.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.bam")
	out, err := os.Create(path)
	require.NoError(t, err)
	w, err := bam.NewWriter(out, header, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())
	return path
}

func testHeader(t *testing.T) (*sam.Header, []*sam.Reference) {
	t.Helper()
	chr1, err := sam.NewReference("chr1", "", "", 10000, nil, nil)
	require.NoError(t, err)
	chr2, err := sam.NewReference("chr2", "", "", 20000, nil, nil)
	require.NoError(t, err)
	chrM, err := sam.NewReference("chrM", "", "", 16571, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, chr2, chrM})
	require.NoError(t, err)
	return header, []*sam.Reference{chr1, chr2, chrM}
}

func TestRefsHeaderOrder(t *testing.T) {
	header, _ := testHeader(t)
	path := writeBAM(t, header, nil)

	refs, err := Refs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"chr1", "chr2", "chrM"}, refs)

	// Deterministic: same file, same ordered list.
	again, err := Refs(path)
	require.NoError(t, err)
	assert.Equal(t, refs, again)
}

func TestRefsMissingFile(t *testing.T) {
	_, err := Refs(filepath.Join(t.TempDir(), "nope.bam"))
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	header, refs := testHeader(t)
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}
	recs := []*sam.Record{
		{Name: "a", Ref: refs[0], Pos: 100, MateRef: refs[0], MatePos: 300, Flags: sam.Paired | sam.Read1, Cigar: cigar},
		{Name: "b", Ref: refs[1], Pos: 500, MateRef: refs[1], MatePos: 700, Flags: sam.Paired | sam.Read2, Cigar: cigar},
	}
	path := writeBAM(t, header, recs)

	var names []string
	err := Scan(path, func(h *sam.Header, rec *sam.Record) error {
		assert.Len(t, h.Refs(), 3)
		names = append(names, rec.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}
