package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hed1ad/anomalyconsensus/internal/config"
	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/internal/logger"
	"github.com/hed1ad/anomalyconsensus/pkg/consensus"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
	dsio "github.com/hed1ad/anomalyconsensus/pkg/io"
	"github.com/hed1ad/anomalyconsensus/pkg/io/csv"
	"github.com/hed1ad/anomalyconsensus/pkg/io/db"
	"github.com/hed1ad/anomalyconsensus/pkg/io/pcap"
	"github.com/hed1ad/anomalyconsensus/pkg/io/report"
	"github.com/hed1ad/anomalyconsensus/pkg/io/xlsx"
)

type runOptions struct {
	csvPath  string
	dbDSN    string
	table    string
	query    string
	xlsxPath string
	sheet    string
	pcapPath string

	compare    bool
	output     string
	htmlOutput string
	envFile    string

	threshold       float64
	inclusive       bool
	workers         int
	timeout         time.Duration
	detectorTimeout time.Duration
	detectorsFile   string
	columns         []string
	maxColumns      int
	backends        []string
	cache           bool
}

func newRunCmd() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every detector over one dataset and report the consensus",
		Long: `Load a dataset from exactly one source, run the configured detectors
concurrently, and print per-method results, statistics and (with --compare)
pairwise overlap and the consensus set.

Settings are read from CONSENSUS_* environment variables (and a .env file);
flags override them.

Example: anomalyconsensus run --csv transactions.csv --compare --output report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFiles(o.envFile)...)
			if err != nil {
				return err
			}
			if err := o.apply(cmd, cfg); err != nil {
				return err
			}
			return runAnalysis(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), o, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.csvPath, "csv", "", "CSV file to analyse")
	f.StringVar(&o.dbDSN, "db", "", "SQLite path or postgres:// DSN to analyse")
	f.StringVar(&o.table, "table", db.DefaultTable, "Table to read with --db")
	f.StringVar(&o.query, "query", "", "SELECT statement to run with --db instead of a table scan")
	f.StringVar(&o.xlsxPath, "xlsx", "", "Excel workbook to analyse")
	f.StringVar(&o.sheet, "sheet", "", "Worksheet to read with --xlsx (default: first sheet)")
	f.StringVar(&o.pcapPath, "pcap", "", "Packet capture (pcap or pcapng) to analyse")
	cmd.MarkFlagsMutuallyExclusive("csv", "db", "xlsx", "pcap")
	cmd.MarkFlagsOneRequired("csv", "db", "xlsx", "pcap")

	f.BoolVar(&o.compare, "compare", false, "Print pairwise overlap and the consensus set")
	f.StringVar(&o.output, "output", "", "Write the JSON report to this file")
	f.StringVar(&o.htmlOutput, "html-output", "", "Write the HTML report to this file")
	f.StringVar(&o.envFile, "env-file", "", "Environment file to load (default: .env)")

	f.Float64Var(&o.threshold, "threshold", 0.5, "Fraction of successful methods that must flag a record")
	f.BoolVar(&o.inclusive, "inclusive", false, "Accept records flagged by exactly --threshold of the methods")
	f.IntVar(&o.workers, "workers", 0, "Detectors run at once (default: number of CPUs)")
	f.DurationVar(&o.timeout, "timeout", 0, "Deadline for the whole run (0 means none)")
	f.DurationVar(&o.detectorTimeout, "detector-timeout", 30*time.Second, "Default limit for each detector")
	f.StringVar(&o.detectorsFile, "detectors", "", "YAML file selecting detectors and validation rules")
	f.StringSliceVar(&o.columns, "columns", nil, "Numeric columns to analyse (default: first --max-columns numeric columns)")
	f.IntVar(&o.maxColumns, "max-columns", 4, "Numeric columns picked automatically (0 means all)")
	f.StringSliceVar(&o.backends, "backends", nil, "Optional backends available (deep-learning)")
	f.BoolVar(&o.cache, "cache", false, "Reuse detector outputs for identical inputs within this process")

	return cmd
}

func envFiles(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

// apply overrides cfg with every flag set on the command line.
func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.ConsensusFraction = o.threshold
	}
	if f.Changed("inclusive") {
		cfg.ConsensusInclusive = o.inclusive
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	if f.Changed("timeout") {
		cfg.RunTimeout = o.timeout
	}
	if f.Changed("detector-timeout") {
		cfg.DetectorTimeout = o.detectorTimeout
	}
	if f.Changed("columns") {
		cfg.Columns = o.columns
	}
	if f.Changed("max-columns") {
		cfg.MaxColumns = o.maxColumns
	}
	if f.Changed("backends") {
		cfg.Backends = o.backends
	}
	if f.Changed("detectors") {
		cfg.DetectorsFile = o.detectorsFile
		if err := cfg.LoadDetectors(); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func (o runOptions) reader() (dsio.Reader, error) {
	switch {
	case o.csvPath != "":
		r, err := csv.NewReader(o.csvPath)
		return r, wrapLoad(o.csvPath, err)
	case o.dbDSN != "":
		opts := []db.Option{db.WithTable(o.table)}
		if o.query != "" {
			opts = append(opts, db.WithQuery(o.query))
		}
		r, err := db.NewReader(o.dbDSN, opts...)
		return r, wrapLoad("database", err)
	case o.xlsxPath != "":
		r, err := xlsx.NewReader(o.xlsxPath, xlsx.WithSheet(o.sheet))
		return r, wrapLoad(o.xlsxPath, err)
	case o.pcapPath != "":
		r, err := pcap.NewFileReader(o.pcapPath)
		return r, wrapLoad(o.pcapPath, err)
	}
	return nil, apperr.Configuration("one of --csv, --db, --xlsx or --pcap is required")
}

func wrapLoad(source string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.DataLoad(source, err)
}

func runAnalysis(ctx context.Context, stdout, stderr io.Writer, o runOptions, cfg *config.Config) error {
	logOpts := logger.FromEnv()
	logOpts.Writer = stderr
	base := logger.New(logOpts)
	log := logger.Named(base, "anomalyconsensus")

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	r, err := o.reader()
	if err != nil {
		return err
	}
	source := r.Source()
	ds, err := dsio.Load(ctx, r)
	if err != nil {
		return err
	}
	log.Info().Str("source", source).Int("records", ds.Len()).Strs("columns", ds.Columns()).Msg("dataset loaded")

	engine := newEngine(cfg, reg, base, o.cache)
	rep, err := engine.Run(ctx, ds, source)
	if err != nil {
		return err
	}

	if err := printReport(stdout, rep, o.compare); err != nil {
		return err
	}
	if o.output != "" {
		if err := report.WriteJSONFile(o.output, rep); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nReport saved: %s\n", o.output)
	}
	if o.htmlOutput != "" {
		if err := report.WriteHTMLFile(o.htmlOutput, rep); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "HTML report saved: %s\n", o.htmlOutput)
	}
	return nil
}

func newEngine(cfg *config.Config, reg *detectors.Registry, base logger.Logger, cache bool) *consensus.Engine {
	opts := []consensus.Option{
		consensus.WithWorkers(cfg.Workers),
		consensus.WithRunTimeout(cfg.RunTimeout),
		consensus.WithEnvironment(cfg.Environment()),
		consensus.WithLogger(logger.Named(base, "harness")),
	}
	if cache {
		opts = append(opts, consensus.WithCache(consensus.NewMemoryCache()))
	}
	e := consensus.NewEngine(reg, consensus.NewHarness(opts...))
	e.Policy = cfg.Policy()
	e.Config = cfg.DetectorConfig()
	e.Config.Columns = cfg.Columns
	e.MaxColumns = cfg.MaxColumns
	e.Log = logger.Named(base, "engine")
	return e
}

func printReport(w io.Writer, rep *consensus.Report, detailed bool) error {
	fmt.Fprintf(w, "Dataset: %d records, %d columns; analysing %s\n\n",
		rep.Summary.Records, rep.Summary.Columns, strings.Join(rep.AnalysisColumns, ", "))
	if err := report.WriteResults(w, rep); err != nil {
		return err
	}
	if err := report.WriteStatistics(w, rep); err != nil {
		return err
	}
	if detailed {
		return report.WriteDetailed(w, rep)
	}
	return nil
}
