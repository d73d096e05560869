package caller

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/log"
)

// MEICaller is the standard mobile-element-insertion caller ("call"
// subcommand), covering both single-sample and tumour/normal runs.
type MEICaller struct {
	engine
}

// Call runs the insertion pipeline and writes
// <outDir>/<sample>.insertions.tsv.
func (c *MEICaller) Call(ctx context.Context) error {
	conf := c.conf
	log.Printf("***** MEI calling started (%s mode) *****", conf.Mode)
	if err := c.loadResources(); err != nil {
		return err
	}
	cands, err := c.candidates(ctx)
	if err != nil {
		return err
	}
	out := filepath.Join(conf.OutDir, sampleName(conf.Bam)+".insertions.tsv")
	if err := writeInsertions(out, cands); err != nil {
		return err
	}
	if conf.Predict {
		// Classification happens downstream; the artifact layout is what
		// the classifier consumes.
		log.Printf("predict requested: %d candidate insertions staged for classification", len(cands))
	}
	log.Printf("%d candidate insertions written to %s", len(cands), out)
	return nil
}

// sampleName derives the sample label from its alignment file name.
func sampleName(bamPath string) string {
	base := filepath.Base(bamPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
