package runlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grailbio/base/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	initMu.Lock()
	installed = false
	initMu.Unlock()
}

func TestOutputRouting(t *testing.T) {
	reset()
	path := filepath.Join(t.TempDir(), "main.log")
	l, err := Init("main", path)
	require.NoError(t, err)
	defer l.Close() // nolint: errcheck

	var console bytes.Buffer
	l.console = &console
	l.now = func() time.Time {
		return time.Date(2024, 5, 1, 10, 2, 3, 0, time.UTC)
	}

	require.NoError(t, l.Output(0, log.Debug, "scanning chr1"))
	require.NoError(t, l.Output(0, log.Info, "12 clusters"))
	require.NoError(t, l.Output(0, log.Error, "blat failed"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2024/05/01 10:02:03 - main - DEBUG - scanning chr1", lines[0])
	assert.Equal(t, "2024/05/01 10:02:03 - main - INFO - 12 clusters", lines[1])
	assert.Equal(t, "2024/05/01 10:02:03 - main - ERROR - blat failed", lines[2])

	// Only the error reaches the console sink.
	assert.Equal(t, "2024/05/01 10:02:03 - main - ERROR - blat failed\n", console.String())
}

func TestInitOnce(t *testing.T) {
	reset()
	dir := t.TempDir()
	l, err := Init("main", filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	defer l.Close() // nolint: errcheck

	_, err = Init("main", filepath.Join(dir, "other.log"))
	assert.Error(t, err)
}

func TestInitBadPath(t *testing.T) {
	reset()
	_, err := Init("main", filepath.Join(t.TempDir(), "missing", "main.log"))
	assert.Error(t, err)
}
