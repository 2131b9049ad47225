// Command pedigree-check loads or simulates a pedigree, runs the post-load
// derivation pipeline, and reports its consistency metadata. It can also write
// the renumbered pedigree and the numerator relationship matrix.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"pedigreecore/internal/annotate"
	"pedigreecore/internal/logging"
	"pedigreecore/internal/metrics"
	"pedigreecore/internal/nrm"
	"pedigreecore/internal/pedigree"
	"pedigreecore/internal/pedio"
	"pedigreecore/internal/sim"
	"pedigreecore/pkg/domain"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type cliConfig struct {
	pedfile   string
	format    string
	separator string
	name      string
	simulate  bool
	seed      int64
	total     int
	outPath   string
	nrmPath   string
	metrics   string
	metadata  bool
	logLevel  string
	logFormat string
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pedigree-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cfg cliConfig
	fs.StringVar(&cfg.pedfile, "pedfile", "", "path to the pedigree file to check")
	fs.StringVar(&cfg.format, "format", domain.DefaultFormat, "pedigree format string, one code per column")
	fs.StringVar(&cfg.separator, "sep", domain.DefaultSeparator, "field separator")
	fs.StringVar(&cfg.name, "name", "", "pedigree name used in logs and output")
	fs.BoolVar(&cfg.simulate, "simulate", false, "generate a pedigree instead of loading one")
	fs.Int64Var(&cfg.seed, "seed", domain.DefaultSimSeed, "random seed for -simulate, 0 for wall clock")
	fs.IntVar(&cfg.total, "total", domain.DefaultSimTotal, "target population size for -simulate")
	fs.StringVar(&cfg.outPath, "out", "", "write the renumbered pedigree to this path")
	fs.StringVar(&cfg.nrmPath, "nrm", "", "write the relationship matrix text to this path")
	fs.StringVar(&cfg.metrics, "metrics-out", "", "write Prometheus text metrics to this path")
	fs.BoolVar(&cfg.metadata, "metadata", false, "print pedigree metadata as JSON")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.StringVar(&cfg.logFormat, "log-format", "console", "log format: json|console")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(cfg, stdout); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "pedigree check failed: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	return 0
}

// validatePath rejects empty, absolute, and traversing paths. This mitigates
// G304 concerns around variable-based file inclusion.
func validatePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths not allowed: %s", p)
	}
	clean := filepath.Clean(p)
	if strings.Contains(clean, "..") { // prevents traversal outside working dir
		return "", fmt.Errorf("path traversal not allowed: %s", p)
	}
	return clean, nil
}

func run(cfg cliConfig, stdout io.Writer) error {
	logger, err := logging.New(cfg.logLevel, cfg.logFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	promReg := prometheus.NewRegistry()
	collectors := metrics.New(promReg)

	start := time.Now()
	checkErr := check(cfg, logger, collectors, stdout)
	collectors.Observe(context.Background(), "pedigree_check", checkErr == nil, time.Since(start))

	if cfg.metrics != "" {
		if err := writeMetrics(cfg.metrics, promReg); err != nil {
			if checkErr == nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			logger.Warn("write metrics failed", "error", err)
		}
	}
	return checkErr
}

func check(cfg cliConfig, logger domain.Logger, collectors *metrics.Registry, stdout io.Writer) error {
	ped, err := buildPedigree(cfg, logger, collectors, stdout)
	if err != nil {
		return err
	}
	if err := annotate.PostLoad(ped, logger); err != nil {
		return fmt.Errorf("post-load pipeline: %w", err)
	}

	meta := ped.Metadata()
	if cfg.metadata {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(meta); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(stdout, "pedigree %s: %d animals, %d founders, generations %g-%g\n",
			ped.Options().Name, meta.TotalAnimals, meta.Founders, meta.MinGeneration, meta.MaxGeneration)
	}

	if cfg.outPath != "" {
		outPath, err := validatePath(cfg.outPath)
		if err != nil {
			return err
		}
		saver := pedio.NewSaver(ped.Options(), logger)
		if err := saver.SaveFile(outPath, ped, "", nil, false); err != nil {
			return fmt.Errorf("write pedigree: %w", err)
		}
	}

	if cfg.nrmPath != "" {
		nrmPath, err := validatePath(cfg.nrmPath)
		if err != nil {
			return err
		}
		m, err := nrm.Compute(ped)
		if err != nil {
			return fmt.Errorf("compute relationships: %w", err)
		}
		if err := m.SaveTextFile(nrmPath); err != nil {
			return fmt.Errorf("write relationship matrix: %w", err)
		}
	}
	return nil
}

// writeMetrics dumps every gathered metric family in the Prometheus text
// exposition format, the shape node_exporter's textfile collector ingests.
func writeMetrics(path string, g prometheus.Gatherer) error {
	clean, err := validatePath(path)
	if err != nil {
		return err
	}
	families, err := g.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(clean) // #nosec G304: path validated above
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}

func buildPedigree(cfg cliConfig, logger domain.Logger, collectors *metrics.Registry, stdout io.Writer) (*pedigree.Pedigree, error) {
	opts := domain.DefaultOptions()
	opts.Name = cfg.name
	opts.Format = cfg.format
	opts.Separator = cfg.separator

	if cfg.simulate {
		simOpts := domain.DefaultSimOptions()
		simOpts.Seed = cfg.seed
		simOpts.Total = cfg.total
		if opts.Name == "" {
			opts.Name = "simulated"
		}
		run, err := sim.New(logger, sim.WithRecorder(collectors)).Generate(simOpts, opts)
		if err != nil {
			return nil, fmt.Errorf("simulate pedigree: %w", err)
		}
		fmt.Fprintf(stdout, "simulated %d animals with seed %d (reproducible: %v)\n",
			run.Generated, run.Seed, run.Reproducible)
		return run.Pedigree, nil
	}

	if cfg.pedfile == "" {
		return nil, fmt.Errorf("either -pedfile or -simulate is required")
	}
	path, err := validatePath(cfg.pedfile)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	opts.Pedfile = path
	ped, err := pedio.NewLoader(opts, logger).LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pedigree: %w", err)
	}
	return ped, nil
}
