// Command normalize reads a regional price workbook, prints what the
// normalizer made of it and optionally exports every view as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"strompris/internal/config"
	"strompris/internal/dataprocessing"
	"strompris/internal/exporter"
	"strompris/internal/files"
	"strompris/internal/infrastructure"
	"strompris/internal/services"
	"strompris/internal/validation"
	"strompris/pkg/contracts/domain"
)

// options are the parsed command line flags
type options struct {
	workbook   string
	exportDir  string
	csv        bool
	paths      config.Paths
	duplicates string
	regions    string
	from, to   int
	logLevel   string
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "normalize: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	defaults := config.Default()
	if cfg, err := config.Load(); err == nil {
		defaults = cfg
	}

	var opts options
	paths, err := config.GetPaths(defaults.Paths)
	if err != nil {
		return options{}, err
	}
	opts.paths = *paths

	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.workbook, "workbook", defaults.Source.Workbook, "workbook file, or a directory whose newest .xlsx is used")
	fs.StringVar(&opts.exportDir, "export", "", "write every view as CSV into this directory (implies -csv)")
	fs.BoolVar(&opts.csv, "csv", false, "write every view as CSV into the configured export directory")
	fs.StringVar(&opts.duplicates, "duplicates", defaults.Source.Duplicates, "duplicate (region, year, month) policy: allow | reject")
	fs.StringVar(&opts.regions, "region", "", "comma separated region names or codes (default all)")
	fs.IntVar(&opts.from, "from", 0, "first year (default earliest)")
	fs.IntVar(&opts.to, "to", 0, "last year (default latest)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug | info | warn | error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func (o options) request() services.SelectionRequest {
	var req services.SelectionRequest
	if o.regions != "" {
		req.Regions = []string{o.regions}
	}
	if o.from != 0 {
		req.FromYear = &o.from
	}
	if o.to != 0 {
		req.ToYear = &o.to
	}
	return req
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := infrastructure.NewLogger(stderr, opts.logLevel)
	ctx = infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID())

	policy, err := dataprocessing.ParseDuplicatePolicy(opts.duplicates)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	path, err := files.NewDiscovery(wd).ResolveWorkbook(opts.workbook)
	if err != nil {
		return services.ClassifyResolveError(err)
	}

	ds, err := dataprocessing.NewLoader(logger, dataprocessing.NormalizerConfig{Duplicates: policy}).Load(ctx, path)
	if err != nil {
		return err
	}

	sel, err := services.Select(ds, opts.request())
	if err != nil {
		return err
	}
	agg := ds.Query(sel)

	printSummary(stdout, ds, sel, agg)

	if !opts.csv && opts.exportDir == "" {
		return nil
	}
	paths := opts.paths
	if opts.exportDir != "" {
		if paths.ExportDir, err = filepath.Abs(opts.exportDir); err != nil {
			return err
		}
	}
	written, err := exportViews(paths, validation.NewFileValidator(logger), exporter.NewCSVWriter(paths.ExportDir).WithLogger(logger), agg)
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Fprintf(stdout, "wrote %s\n", p)
	}
	return nil
}

// exportViews writes one strompris-<view>.csv per view into the export
// directory and returns the paths
func exportViews(paths config.Paths, v *validation.FileValidator, w *exporter.CSVWriter, agg *dataprocessing.Aggregator) ([]string, error) {
	if err := v.ValidateOutputDirectory(paths.ExportDir); err != nil {
		return nil, err
	}

	var written []string
	for _, view := range exporter.Views() {
		table, err := exporter.ViewTable(view, agg)
		if err != nil {
			return written, err
		}
		p, err := w.WriteCSV(paths.GetExportPath(fmt.Sprintf("strompris-%s.csv", view)), table)
		if err != nil {
			return written, fmt.Errorf("export %s: %w", view, err)
		}
		written = append(written, p)
	}
	return written, nil
}

func printSummary(out io.Writer, ds *dataprocessing.Dataset, sel domain.Selection, agg *dataprocessing.Aggregator) {
	lo, hi := ds.YearBounds()
	fmt.Fprintf(out, "source:   %s\n", ds.Source())
	fmt.Fprintf(out, "records:  %d (%d-%d, %s)\n", ds.Len(), lo, hi, domain.PriceUnit)
	fmt.Fprintf(out, "regions:  %s\n\n", strings.Join(ds.RegionNames(), ", "))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHEET\tREGION\tHEADER\tROWS\tDROPPED YEARS\tMISSING PRICES\tRECORDS")
	for _, r := range ds.SheetReports() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.Sheet, r.Region, r.Strategy, r.DataRows, r.DroppedYears, r.MissingPrices, r.Records)
	}
	tw.Flush()

	fmt.Fprintf(out, "\nselection: %s, %d-%d\n", strings.Join(sel.Regions, ", "), sel.FromYear, sel.ToYear)
	m, ok := agg.Overview()
	if !ok {
		fmt.Fprintln(out, "No data available for the selected filters.")
		return
	}
	fmt.Fprintf(out, "latest year %d: average %.2f, highest %s (%.2f), lowest %s (%.2f), range %.2f\n",
		m.Year, m.Average, m.HighestRegion, m.HighestPrice, m.LowestRegion, m.LowestPrice, m.PriceRange)
}
