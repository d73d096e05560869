// Package bamio gives the orchestrator and the calling engines their view
// of BAM alignment files: header introspection and a single sequential
// record scan.
package bamio

import (
	"io"
	"os"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Refs returns the reference sequence names declared in the BAM header,
// in header order. The result is deterministic for a given file; the
// engines iterate per reference, so the order shows up in the run log.
func Refs(path string) ([]string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer in.Close() // nolint: errcheck
	r, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "reading BAM header of %s", path)
	}
	refs := r.Header().Refs()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name())
	}
	return names, nil
}

// Scan reads every record of the BAM at path once, in file order, and
// hands each to visit together with its header. Scan stops at the first
// visit error.
func Scan(path string, visit func(h *sam.Header, rec *sam.Record) error) error {
	in, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer in.Close() // nolint: errcheck
	r, err := bam.NewReader(in, 1)
	if err != nil {
		return errors.Wrapf(err, "reading BAM header of %s", path)
	}
	h := r.Header()
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		if err := visit(h, rec); err != nil {
			return err
		}
	}
}
