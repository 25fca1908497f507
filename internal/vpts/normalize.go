package vpts

import (
	"math"
	"strconv"
	"time"

	"github.com/aeroecology/vpts-etl/internal/odim"
)

// timeLayout is the ISO 8601 UTC form required by the VPTS CSV standard.
const timeLayout = "2006-01-02T15:04:05Z"

// Row is one normalized output row: the rendered cells in schema column
// order plus the typed sort key.
type Row struct {
	Radar     string
	Timestamp time.Time
	Height    int
	Cells     []string
}

// Key returns the row's dedup/sort key.
func (r Row) Key() string {
	return r.Radar + "|" + r.Timestamp.UTC().Format(timeLayout) + "|" + strconv.Itoa(r.Height)
}

// Less orders rows ascending by (radar, datetime, height).
func (r Row) Less(other Row) bool {
	if r.Radar != other.Radar {
		return r.Radar < other.Radar
	}
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.Before(other.Timestamp)
	}
	return r.Height < other.Height
}

// Normalizer flattens ScanMeta + one Level into exactly one Row according
// to its schema.
type Normalizer struct {
	schema Schema
}

// NewNormalizer creates a Normalizer bound to an explicit schema value.
func NewNormalizer(schema Schema) Normalizer {
	return Normalizer{schema: schema}
}

// Schema returns the ruleset this normalizer applies.
func (n Normalizer) Schema() Schema { return n.schema }

// Row renders one output row. It fails only when a required field is
// absent: the station code or the scan timestamp. Every other gap becomes
// the schema's sentinel token, never a silent zero.
func (n Normalizer) Row(meta ScanMeta, level Level) (Row, error) {
	if meta.Radar == "" {
		return Row{}, &NormalizationError{Field: "radar"}
	}
	if meta.Timestamp.IsZero() {
		return Row{}, &NormalizationError{Field: "datetime"}
	}

	cells := make([]string, len(n.schema.Columns))
	for i, col := range n.schema.Columns {
		cells[i] = n.renderColumn(col, meta, level)
	}
	return Row{
		Radar:     meta.Radar,
		Timestamp: meta.Timestamp.UTC(),
		Height:    int(level.Height),
		Cells:     cells,
	}, nil
}

func (n Normalizer) renderColumn(col Column, meta ScanMeta, level Level) string {
	switch col.Source {
	case FromRadar:
		return meta.Radar
	case FromDatetime:
		return meta.Timestamp.UTC().Format(timeLayout)
	case FromHeight:
		return strconv.Itoa(int(level.Height))
	case FromRCS:
		return n.renderNumber(meta.RCS, col)
	case FromSdVvpThreshold:
		return n.renderNumber(meta.SdVvpThreshold, col)
	case FromVCP:
		// 0 is the instrument's "unreported" code, not a real pattern id.
		if meta.VCP == 0 {
			return n.schema.Nodata
		}
		return strconv.Itoa(meta.VCP)
	case FromLongitude:
		return n.renderNumber(meta.Longitude, col)
	case FromLatitude:
		return n.renderNumber(meta.Latitude, col)
	case FromRadarHeight:
		return strconv.Itoa(meta.RadarHeight)
	case FromWavelength:
		return n.renderNumber(meta.Wavelength, col)
	case FromQuantity:
		sample, ok := level.Quantities[col.Quantity]
		if !ok {
			return n.schema.Nodata
		}
		return n.renderSample(sample, col)
	default:
		return n.schema.Nodata
	}
}

func (n Normalizer) renderSample(sample odim.Sample, col Column) string {
	switch sample.Flag {
	case odim.NoData:
		return n.schema.Nodata
	case odim.Undetect:
		return n.schema.Undetect
	}
	if math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0) {
		return n.schema.Nodata
	}

	switch col.Format {
	case FormatBool:
		if sample.Value != 0 {
			return "true"
		}
		return "false"
	case FormatInt:
		return strconv.FormatInt(int64(math.Round(sample.Value)), 10)
	default:
		return n.renderNumber(sample.Value, col)
	}
}

func (n Normalizer) renderNumber(v float64, col Column) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return n.schema.Nodata
	}
	if col.Precision > 0 {
		return strconv.FormatFloat(v, 'f', col.Precision, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NormalizeProfile renders all levels of one profile. Fails on the first
// required-field error, since those are scan-level conditions.
func (n Normalizer) NormalizeProfile(p *Profile) ([]Row, error) {
	rows := make([]Row, 0, len(p.Levels))
	for _, level := range p.Levels {
		row, err := n.Row(p.Meta, level)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
