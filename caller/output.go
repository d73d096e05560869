package caller

import (
	"fmt"
	"os"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// writeInsertions writes the insertion candidate table. One row per
// candidate, breakpoint-ordered within each target reference.
func writeInsertions(path string, cands []Candidate) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w := tsv.NewWriter(f)
	w.WriteString("#CHROM\tBEG\tEND\tNB_TOTAL\tNB_DISCORDANT\tNB_CLIPPING\tMEAN_MAPQ\tLOWMQ_FRAC\tSMS_FRAC\tNORMAL_READS")
	if err = w.EndLine(); err != nil {
		return err
	}
	for _, c := range cands {
		writeCandidateCols(w, c)
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeTransductions writes the transduction candidate table: the
// insertion columns plus the attributed source locus.
func writeTransductions(path string, tds []Transduction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
	}()
	w := tsv.NewWriter(f)
	w.WriteString("#CHROM\tBEG\tEND\tNB_TOTAL\tNB_DISCORDANT\tNB_CLIPPING\tMEAN_MAPQ\tLOWMQ_FRAC\tSMS_FRAC\tNORMAL_READS\tSRC_ID\tSRC_FAMILY\tTD_END")
	if err = w.EndLine(); err != nil {
		return err
	}
	for _, td := range tds {
		writeCandidateCols(w, td.Candidate)
		w.WriteString(td.SrcName)
		w.WriteString(td.SrcFamily)
		w.WriteString(td.TdEnd)
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeCandidateCols(w *tsv.Writer, c Candidate) {
	w.WriteString(c.Ref)
	w.WriteInt64(int64(c.Start))
	w.WriteInt64(int64(c.End))
	w.WriteInt64(int64(c.Size()))
	w.WriteInt64(int64(c.NbDiscordant))
	w.WriteInt64(int64(c.NbClipping))
	w.WriteString(fmt.Sprintf("%.2f", c.MeanMapQ))
	w.WriteString(fmt.Sprintf("%.4f", c.LowMQFrac))
	w.WriteString(fmt.Sprintf("%.4f", c.SAFrac))
	w.WriteInt64(int64(c.NormalReads))
}
