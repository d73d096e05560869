package caller

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigalabs/meiga-sr/config"
)

func callConf(t *testing.T) *config.Config {
	outDir := t.TempDir()
	return &config.Config{
		Source:               "MEIGA-SR-" + config.Version,
		Processes:            2,
		ReadFilters:          []string{"unmapped", "secondary", "supplementary"},
		MinMAPQ:              20,
		MinClippingLen:       10,
		TargetEvents:         []string{"DISCORDANT", "CLIPPING"},
		TargetRefs:           []string{"chr1"},
		MinClusterSize:       2,
		MaxClusterSize:       100,
		MaxBkpDist:           200,
		MinPercRcplOverlap:   50,
		EqualOrientBuffer:    50,
		OppositeOrientBuffer: 100,
		MinReads:             2,
		MinNormalReads:       2,
		MinNbDiscordant:      2,
		MinNbClipping:        2,
		MinReadsRegionMQ:     20,
		MaxRegionLowMQ:       0.5,
		MaxRegionSMS:         0.5,
		TdEnds:               []string{"3prime", "5prime"},
		OutDir:               outDir,
		LogDir:               filepath.Join(outDir, "logs"),
		RunKind:              config.Standard,
		Mode:                 config.Single,
	}
}

// tumorCluster is three discordant reads anchoring one insertion on chr1
// around position 1100-1180, mates in a fixed window of chr2.
func tumorCluster() []*sam.Record {
	return []*sam.Record{
		newRecord("t1", testChr1, 1000, sam.Paired|sam.Read1, 60, testChr2, 5000, cigar100M),
		newRecord("t2", testChr1, 1030, sam.Paired|sam.Read1, 60, testChr2, 5040, cigar100M),
		newRecord("t3", testChr1, 1080, sam.Paired|sam.Read1, 60, testChr2, 5100, cigar100M),
	}
}

func readTSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows [][]string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows
}

func TestNewDispatch(t *testing.T) {
	conf := callConf(t)
	c, err := New(conf)
	require.NoError(t, err)
	assert.IsType(t, &MEICaller{}, c)

	conf.RunKind = config.Transduction
	c, err = New(conf)
	require.NoError(t, err)
	assert.IsType(t, &TransductionCaller{}, c)

	conf.ReadFilters = []string{"bogus"}
	_, err = New(conf)
	assert.Error(t, err)
}

func TestMEICallerSingle(t *testing.T) {
	conf := callConf(t)
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.insertions.tsv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "#CHROM", rows[0][0])
	row := rows[1]
	assert.Equal(t, "chr1", row[0])
	assert.Equal(t, "3", row[3]) // NB_TOTAL
	assert.Equal(t, "3", row[4]) // NB_DISCORDANT
	assert.Equal(t, "0", row[5]) // NB_CLIPPING
	assert.Equal(t, "60.00", row[6])
}

func TestMEICallerPairedSubtractsGermline(t *testing.T) {
	conf := callConf(t)
	conf.Mode = config.Paired
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())
	// The normal sample shows the same discordant signal: germline, not
	// somatic.
	conf.NormalBam = writeBAM(t, "normal.bam", []*sam.Record{
		newRecord("n1", testChr1, 1010, sam.Paired|sam.Read1, 60, testChr2, 5010, cigar100M),
		newRecord("n2", testChr1, 1060, sam.Paired|sam.Read1, 60, testChr2, 5060, cigar100M),
	})

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.insertions.tsv"))
	assert.Len(t, rows, 1) // header only
}

func TestMEICallerPairedKeepsSomatic(t *testing.T) {
	conf := callConf(t)
	conf.Mode = config.Paired
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())
	conf.NormalBam = writeBAM(t, "normal.bam", nil)

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.insertions.tsv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "0", rows[1][9]) // NORMAL_READS
}

func TestMEICallerMinReadsFilter(t *testing.T) {
	conf := callConf(t)
	conf.MinReads = 4
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.insertions.tsv"))
	assert.Len(t, rows, 1)
}

func TestMEICallerGermlineExclusion(t *testing.T) {
	conf := callConf(t)
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())
	bed := filepath.Join(t.TempDir(), "germline.bed")
	require.NoError(t, os.WriteFile(bed, []byte("chr1\t1000\t1300\tknown_L1\tL1\n"), 0644))
	conf.GermlineMEI = bed

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.insertions.tsv"))
	assert.Len(t, rows, 1)
}

func TestTransductionCallerMatchesSource(t *testing.T) {
	conf := callConf(t)
	conf.RunKind = config.Transduction
	conf.SrcFamilies = []string{"L1"}
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())
	bed := filepath.Join(t.TempDir(), "sources.bed")
	require.NoError(t, os.WriteFile(bed, []byte(
		"chr2\t4000\t5200\tL1_src_7\tL1\nchr2\t9000\t9500\tSVA_src_1\tSVA\n"), 0644))
	conf.SrcBed = bed

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.transductions.tsv"))
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "chr1", row[0])
	assert.Equal(t, "L1_src_7", row[10])
	assert.Equal(t, "L1", row[11])
	assert.Equal(t, "3prime", row[12]) // mates at 5000+ sit in the locus's 3' half
}

func TestTransductionCallerTargetedDropsUnmatched(t *testing.T) {
	conf := callConf(t)
	conf.RunKind = config.Transduction
	conf.RetroTestWGS = false
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())
	bed := filepath.Join(t.TempDir(), "sources.bed")
	// No source locus anywhere near the mates.
	require.NoError(t, os.WriteFile(bed, []byte("chr2\t100000\t100500\tL1_src_9\tL1\n"), 0644))
	conf.SrcBed = bed

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.transductions.tsv"))
	assert.Len(t, rows, 1)
}

func TestTransductionCallerWGSKeepsUnmatched(t *testing.T) {
	conf := callConf(t)
	conf.RunKind = config.Transduction
	conf.RetroTestWGS = true
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster())

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.transductions.tsv"))
	require.Len(t, rows, 2)
	assert.Equal(t, ".", rows[1][10])
	assert.Equal(t, ".", rows[1][12])
}

func TestTransductionCallerBlatClipRequiresClipping(t *testing.T) {
	conf := callConf(t)
	conf.RunKind = config.Transduction
	conf.RetroTestWGS = true
	conf.BlatClip = true
	conf.Bam = writeBAM(t, "tumor.bam", tumorCluster()) // discordant only

	c, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, c.Call(context.Background()))

	rows := readTSV(t, filepath.Join(conf.OutDir, "tumor.transductions.tsv"))
	assert.Len(t, rows, 1)
}
