package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0755))
	}
}

func TestMissingProgramsEmptyPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	assert.Equal(t, []string{"bwa", "blat"}, MissingPrograms())
}

func TestMissingProgramsAllPresent(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "bwa", "blat")
	t.Setenv("PATH", dir)
	assert.Empty(t, MissingPrograms())
}

func TestMissingDB(t *testing.T) {
	refDir := t.TempDir()
	annovarDir := t.TempDir()
	touch(t, refDir, "consensus.fa", "repeats.bed")
	touch(t, annovarDir, "table_annovar.pl", "annotate_variation.pl")

	missing := MissingDB(refDir, annovarDir)
	assert.Equal(t, []string{"exclusion.bed", "humandb"}, missing)

	touch(t, refDir, "exclusion.bed")
	require.NoError(t, os.Mkdir(filepath.Join(annovarDir, "humandb"), 0755))
	assert.Empty(t, MissingDB(refDir, annovarDir))
}
