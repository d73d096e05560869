// meiga-sr detects retrotransposon (mobile element) insertions and
// transductions from paired-end sequencing alignments. This binary is the
// orchestrator: it resolves the run configuration, gates on external
// dependencies and dispatches one of the two calling engines.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/meigalabs/meiga-sr/bamio"
	"github.com/meigalabs/meiga-sr/caller"
	"github.com/meigalabs/meiga-sr/config"
	"github.com/meigalabs/meiga-sr/deps"
	"github.com/meigalabs/meiga-sr/runlog"
)

type runFlags struct {
	normalBam string
	outDir    string
	processes int
	debug     bool
	predict   bool
}

// registerRunFlags wires the flags shared by both subcommands. Short and
// long spellings bind to the same value.
func registerRunFlags(cmd *cmdline.Command, withPredict bool) *runFlags {
	f := &runFlags{}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cmd.Flags.StringVar(&f.normalBam, "normalBam", "", "Matched normal BAM file. If provided MEIGA runs in PAIRED mode")
	cmd.Flags.StringVar(&f.outDir, "outDir", cwd, "Output directory. Default: current working directory")
	cmd.Flags.StringVar(&f.outDir, "o", cwd, "Shorthand for -outDir")
	cmd.Flags.IntVar(&f.processes, "processes", 1, "Number of processes. Default: 1")
	cmd.Flags.IntVar(&f.processes, "p", 1, "Shorthand for -processes")
	cmd.Flags.BoolVar(&f.debug, "debug", false, "Debug mode: nest the run output under a timestamped directory")
	cmd.Flags.BoolVar(&f.debug, "d", false, "Shorthand for -debug")
	if withPredict {
		cmd.Flags.BoolVar(&f.predict, "predict", false, "Apply the trained classifier to the output")
	}
	return f
}

func newCmdCall() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "call",
		Short: "Call mobile element insertions from short-read data",
		Long: `
Call mobile element insertions from short-read data. Two running modes:
SINGLE analyzes an individual sample; PAIRED analyzes a tumour sample
against a matched normal.
`,
		ArgsName: "config bam",
	}
	flags := registerRunFlags(cmd, true)
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, argv []string) error {
		return run(config.Standard, flags, argv)
	})
	return cmd
}

func newCmdCallTds() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "call-tds",
		Short: "Call mobile element transductions from short-read data",
		Long: `
Call transductions for a set of target loci from targeted or whole genome
sequencing data. Two running modes: SINGLE analyzes an individual sample;
PAIRED analyzes a tumour sample against a matched normal.
`,
		ArgsName: "config bam",
	}
	flags := registerRunFlags(cmd, false)
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, argv []string) error {
		return run(config.Transduction, flags, argv)
	})
	return cmd
}

func run(kind config.RunKind, flags *runFlags, argv []string) error {
	start := time.Now()

	// Nothing may run with missing external programs: fail before any
	// configuration is read or output produced.
	if missing := deps.MissingPrograms(); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "missing program dependencies: %s\n", strings.Join(missing, ", "))
		return cmdline.ErrExitCode(1)
	}

	if len(argv) != 2 {
		return fmt.Errorf("%s takes the config file and bam as positional arguments, but got %v", kind, argv)
	}
	conf, err := config.Resolve(config.Args{
		Kind:       kind,
		ConfigFile: argv[0],
		Bam:        argv[1],
		NormalBam:  flags.normalBam,
		OutDir:     flags.outDir,
		Processes:  flags.processes,
		Debug:      flags.debug,
		Predict:    flags.predict,
		Refs:       bamio.Refs,
	})
	if err != nil {
		return err
	}

	// Output and log directories must exist before the logger does.
	// Creation is idempotent.
	if err := os.MkdirAll(conf.OutDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(conf.LogDir, 0755); err != nil {
		return err
	}
	logger, err := runlog.Init("main", filepath.Join(conf.LogDir, "main.log"))
	if err != nil {
		return err
	}
	defer logger.Close() // nolint: errcheck

	log.Printf("***** meiga-sr %s configuration *****", config.Version)
	log.Printf("*** Arguments ***")
	log.Printf("subcommand: %s", kind)
	log.Printf("config file: %s", argv[0])
	log.Printf("bam: %s", conf.Bam)
	normal := conf.NormalBam
	if normal == "" {
		normal = "none"
	}
	log.Printf("normalBam: %s", normal)
	log.Printf("outDir: %s", conf.OutDir)
	log.Printf("processes: %d", conf.Processes)
	log.Printf("*** Configuration ***")
	conf.LogFields()

	// Second gate: the resolved resource directories must hold the
	// expected databases. The output directory already exists at this
	// point and is deliberately not cleaned up.
	if missing := deps.MissingDB(conf.RefDir, conf.AnnovarDir); len(missing) > 0 {
		log.Error.Printf("missing database files: %s", strings.Join(missing, ", "))
		return cmdline.ErrExitCode(1)
	}

	engine, err := caller.New(conf)
	if err != nil {
		return err
	}
	if err := engine.Call(vcontext.Background()); err != nil {
		return err
	}

	log.Printf("***** Finished! in %.4f minutes *****", time.Since(start).Minutes())
	return nil
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:     "meiga-sr",
		Short:    "Detect retrotransposon insertions from paired-end sequencing data",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdCall(),
			newCmdCallTds(),
		},
	})
}
