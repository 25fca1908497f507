// Package batch turns a directory of bird-profile files into one
// finalized time-series table. Each input file is processed in
// isolation: a corrupt or unreadable file is recorded as a failure and
// the rest of the batch continues.
package batch

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aeroecology/vpts-etl/internal/observability"
	"github.com/aeroecology/vpts-etl/internal/odim"
	"github.com/aeroecology/vpts-etl/internal/vpts"
)

// ProfileExt is the filename extension of bird-profile container files.
const ProfileExt = ".odvp"

// ErrorKind classifies why a file was excluded from the output table.
type ErrorKind string

const (
	KindExtraction         ErrorKind = "extraction"
	KindUnsupportedVersion ErrorKind = "unsupported_version"
	KindNormalization      ErrorKind = "normalization"
)

// FileFailure records one excluded input file.
type FileFailure struct {
	Path string
	Kind ErrorKind
	Err  error
}

// Result is the outcome of one batch run. Succeeded counts files whose
// rows made it into the table, including profiles with zero levels.
type Result struct {
	Table     *vpts.Table
	Processed int
	Succeeded int
	Failures  []FileFailure
}

// Runner drives the extract-normalize-aggregate loop over a set of files.
type Runner struct {
	normalizer vpts.Normalizer
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewRunner creates a Runner with the given schema normalizer and observability.
func NewRunner(n vpts.Normalizer, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{normalizer: n, logger: logger, metrics: metrics}
}

// Discover walks root and returns the paths of all profile files, sorted
// lexicographically. When days > 0, files last modified more than that
// many whole days before now are excluded.
func Discover(root string, days int) ([]string, error) {
	var cutoff time.Time
	if days > 0 {
		cutoff = clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ProfileExt) {
			return nil
		}
		if days > 0 {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.ModTime().Before(cutoff) {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// Run processes every path, aggregating rows from the files that parse
// and normalize cleanly. The returned table is finalized: deduplicated
// on (station, timestamp, height) with the last path in sort order
// winning, then sorted on the same key.
func (r *Runner) Run(paths []string) Result {
	res := Result{Table: &vpts.Table{}, Processed: len(paths)}
	r.metrics.FilesDiscovered.Add(float64(len(paths)))

	for _, path := range paths {
		rows, err := r.processFile(path)
		if err != nil {
			kind := classify(err)
			r.logger.Warn("file skipped", "path", path, "kind", string(kind), "error", err)
			r.metrics.FilesFailed.Inc()
			res.Failures = append(res.Failures, FileFailure{Path: path, Kind: kind, Err: err})
			continue
		}

		if len(rows) == 0 {
			r.logger.Info("profile has no levels, contributing no rows", "path", path)
		}
		for _, row := range rows {
			res.Table.Append(row)
		}
		r.metrics.FilesSucceeded.Inc()
		res.Succeeded++
	}

	res.Table.Finalize()
	return res
}

func (r *Runner) processFile(path string) ([]vpts.Row, error) {
	f, err := odim.Read(path)
	if err != nil {
		return nil, err
	}
	return r.normalizer.NormalizeProfile(vpts.FromFile(f))
}

// classify maps a per-file error onto its reporting category.
func classify(err error) ErrorKind {
	var normErr *vpts.NormalizationError
	switch {
	case errors.Is(err, odim.ErrUnsupportedVersion):
		return KindUnsupportedVersion
	case errors.As(err, &normErr):
		return KindNormalization
	default:
		return KindExtraction
	}
}
