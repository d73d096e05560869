// Package deps holds the pre-flight dependency gates. Every gate returns
// the names of missing requirements; an empty result means the run may
// proceed. The orchestrator never starts real work while a gate reports
// anything missing.
package deps

import (
	"os"
	"os/exec"
	"path/filepath"
)

// programs are the external executables the calling engines shell out to.
var programs = []string{
	"bwa",
	"blat",
}

// refFiles are the reference-resource databases expected under refDir.
var refFiles = []string{
	"consensus.fa",
	"repeats.bed",
	"exclusion.bed",
}

// annovarFiles are the annotation-tool entry points expected under
// annovarDir.
var annovarFiles = []string{
	"table_annovar.pl",
	"annotate_variation.pl",
	"humandb",
}

// MissingPrograms returns the required external programs not found on
// PATH. Called before any configuration is read.
func MissingPrograms() []string {
	var missing []string
	for _, p := range programs {
		if _, err := exec.LookPath(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

// MissingDB returns the reference and annotation database files absent
// from the resolved resource directories. Called only after the
// configuration record has resolved both paths.
func MissingDB(refDir, annovarDir string) []string {
	var missing []string
	for _, f := range refFiles {
		if _, err := os.Stat(filepath.Join(refDir, f)); err != nil {
			missing = append(missing, f)
		}
	}
	for _, f := range annovarFiles {
		if _, err := os.Stat(filepath.Join(annovarDir, f)); err != nil {
			missing = append(missing, f)
		}
	}
	return missing
}
