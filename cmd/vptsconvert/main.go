// Command vptsconvert reads a directory tree of vertical-profile
// container files and writes them as one standardized VPTS CSV time
// series. Files that fail to parse or normalize are reported and
// skipped; the run succeeds as long as at least one file contributed.
//
// Usage:
//
//	vptsconvert -input data/odvp -output out/vpts.csv \
//	  -modified-days-ago 3 -descriptor
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aeroecology/vpts-etl/internal/batch"
	"github.com/aeroecology/vpts-etl/internal/config"
	"github.com/aeroecology/vpts-etl/internal/notify"
	"github.com/aeroecology/vpts-etl/internal/observability"
	"github.com/aeroecology/vpts-etl/internal/vpts"
)

func main() {
	input := flag.String("input", "", "directory tree containing profile files")
	output := flag.String("output", "", "path of the CSV file to write")
	days := flag.Int("modified-days-ago", 0, "only include files modified within this many days (0 = all)")
	descriptor := flag.Bool("descriptor", false, "also write a datapackage.json next to the CSV")
	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	os.Exit(run(cfg, logger, metrics, *input, *output, *days, *descriptor))
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, input, output string, days int, descriptor bool) int {
	start := time.Now()
	schema := vpts.DefaultSchema()

	paths, err := batch.Discover(input, days)
	if err != nil {
		logger.Error("discovery failed", "input", input, "error", err)
		return 1
	}
	logger.Info("batch started", "input", input, "files", len(paths), "modified_days_ago", days)

	res := batch.NewRunner(vpts.NewNormalizer(schema), logger, metrics).Run(paths)

	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "skipped %s: %s: %v\n", f.Path, f.Kind, f.Err)
	}
	fmt.Fprintf(os.Stderr, "processed %d files, %d succeeded, %d failed\n",
		res.Processed, res.Succeeded, len(res.Failures))

	if res.Succeeded == 0 {
		logger.Error("no files could be converted", "processed", res.Processed)
		return 1
	}

	if err := vpts.WriteCSV(res.Table, schema, output); err != nil {
		logger.Error("write failed", "output", output, "error", err)
		return 1
	}
	metrics.RowsWritten.Add(float64(res.Table.Len()))
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	logger.Info("table written", "output", output, "rows", res.Table.Len())

	if descriptor {
		if err := vpts.WriteDescriptor(output); err != nil {
			logger.Error("descriptor write failed", "error", err)
			return 1
		}
	}

	if err := metrics.Push(cfg.PushgatewayURL, "vptsconvert"); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}
	publishReport(cfg, logger, res, output, start)

	return 0
}

// publishReport sends a run summary to Kafka when brokers are configured.
// Reporting problems never change the exit code.
func publishReport(cfg *config.Config, logger *slog.Logger, res batch.Result, output string, start time.Time) {
	if !cfg.NotifyEnabled {
		return
	}

	reporter := notify.NewReporter(cfg, logger)
	defer reporter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := notify.RunReport{
		Command:     "vptsconvert",
		StartedAt:   start.UTC(),
		FinishedAt:  time.Now().UTC(),
		Processed:   res.Processed,
		Succeeded:   res.Succeeded,
		RowsWritten: res.Table.Len(),
		Output:      output,
		Failures:    notify.Notes(res.Failures),
	}
	if err := reporter.Publish(ctx, report); err != nil {
		logger.Warn("run report publish failed", "error", err)
	}
}
