// Package transfer moves vertical-profile files from a remote SFTP
// drop directory into an object-store bucket, skipping files that were
// already uploaded. It is thin glue around the SDKs; per-file errors
// are recorded and never abort the run.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aeroecology/vpts-etl/internal/observability"
)

// Source lists remote profile files and fetches them one at a time.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name, localPath string) error
}

// Sink stores profile files under deterministic keys.
type Sink interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key, localPath string) error
}

// Report summarizes one transfer run.
type Report struct {
	Considered  int
	Transferred int
	Skipped     int
	Failed      int
}

// ProfileName is the metadata parsed from a profile file name such as
// "bejab_vp_20221111T233000Z_0x9.odvp".
type ProfileName struct {
	Radar string
	Date  time.Time
}

// ParseProfileName extracts the radar code and scan date from a profile
// file name. Names without a "_vp_" marker or a parseable timestamp are
// rejected.
func ParseProfileName(name string) (ProfileName, error) {
	base := path.Base(name)
	radar, rest, ok := strings.Cut(base, "_vp_")
	if !ok || radar == "" {
		return ProfileName{}, fmt.Errorf("no _vp_ marker in %q", base)
	}
	stamp, _, _ := strings.Cut(rest, "_")
	if dot := strings.IndexByte(stamp, '.'); dot >= 0 {
		stamp = stamp[:dot]
	}
	date, err := time.Parse("20060102T150405Z", stamp)
	if err != nil {
		return ProfileName{}, fmt.Errorf("timestamp in %q: %w", base, err)
	}
	return ProfileName{Radar: radar, Date: date.UTC()}, nil
}

// Key returns the destination key for a profile file:
// <source>/odvp/<radar>/<year>/<month>/<day>/<name>.
func Key(source, name string, pn ProfileName) string {
	return path.Join(
		source, "odvp", pn.Radar,
		fmt.Sprintf("%04d", pn.Date.Year()),
		fmt.Sprintf("%02d", pn.Date.Month()),
		fmt.Sprintf("%02d", pn.Date.Day()),
		path.Base(name),
	)
}

// Mover copies eligible files from a Source to a Sink.
type Mover struct {
	source     Source
	sink       Sink
	sourceName string // first key segment, e.g. "baltrad"
	tempDir    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewMover wires a source, a sink, and the key prefix identifying the
// data provider.
func NewMover(source Source, sink Sink, sourceName, tempDir string, logger *slog.Logger, metrics *observability.Metrics) *Mover {
	return &Mover{
		source:     source,
		sink:       sink,
		sourceName: sourceName,
		tempDir:    tempDir,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run lists the remote directory and transfers every profile file not
// already present at the destination. Names without the "_vp_" marker
// are ignored; unparseable profile names count as skipped.
func (m *Mover) Run(ctx context.Context) (Report, error) {
	names, err := m.source.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list source: %w", err)
	}
	sort.Strings(names)

	var rep Report
	for _, name := range names {
		if !strings.Contains(path.Base(name), "_vp_") {
			continue
		}
		rep.Considered++

		if err := m.transferOne(ctx, name, &rep); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			m.logger.Error("transfer failed", "name", name, "error", err)
			m.metrics.TransferErrors.Inc()
			rep.Failed++
		}
	}
	return rep, nil
}

func (m *Mover) transferOne(ctx context.Context, name string, rep *Report) error {
	pn, err := ParseProfileName(name)
	if err != nil {
		m.logger.Warn("skipping unparseable name", "name", name, "error", err)
		m.metrics.FilesSkipped.Inc()
		rep.Skipped++
		return nil
	}

	key := Key(m.sourceName, name, pn)
	exists, err := m.sink.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		m.logger.Debug("already uploaded", "key", key)
		m.metrics.FilesSkipped.Inc()
		rep.Skipped++
		return nil
	}

	local := filepath.Join(m.tempDir, path.Base(name))
	if err := m.source.Fetch(ctx, name, local); err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	if err := m.sink.Upload(ctx, key, local); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	m.logger.Info("transferred", "name", name, "key", key)
	m.metrics.FilesTransferred.Inc()
	rep.Transferred++
	return nil
}
