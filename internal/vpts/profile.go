// Package vpts models radar vertical profiles and their conversion to the
// VPTS CSV tabular standard: one row per (radar, timestamp, height) with a
// fixed column set, explicit missing-value sentinels, and deterministic
// ordering.
package vpts

import (
	"fmt"
	"time"

	"github.com/aeroecology/vpts-etl/internal/odim"
)

// ScanMeta identifies one scan: the station, the timestamp, and the
// instrument parameters repeated on every output row. Immutable once
// extracted.
type ScanMeta struct {
	Radar          string // NOD station code
	Timestamp      time.Time
	RCS            float64 // assumed radar cross section, cm²
	SdVvpThreshold float64
	VCP            int // volume coverage pattern; 0 when unreported
	Longitude      float64
	Latitude       float64
	RadarHeight    int // station altitude, m
	Wavelength     float64
}

// Level is one altitude bin of one scan.
type Level struct {
	Height     float64                // meters
	Quantities map[string]odim.Sample // keyed by ODIM quantity name
}

// Profile is the in-memory form of one decoded scan, between extraction
// and normalization.
type Profile struct {
	Meta   ScanMeta
	Levels []Level
}

// FromFile shapes a decoded container into a Profile. The container has
// already been structurally validated, so this only regroups per-quantity
// arrays into per-level records and pulls out the scan metadata.
func FromFile(f *odim.File) *Profile {
	meta := ScanMeta{
		Radar:     f.Source["NOD"],
		Timestamp: f.Timestamp,
	}
	meta.RCS, _ = odim.FloatAttr(f.Attrs, "rcs_bird")
	meta.SdVvpThreshold, _ = odim.FloatAttr(f.Attrs, "sd_vvp_thresh")
	meta.Longitude, _ = odim.FloatAttr(f.Attrs, "lon")
	meta.Latitude, _ = odim.FloatAttr(f.Attrs, "lat")
	meta.Wavelength, _ = odim.FloatAttr(f.Attrs, "wavelength")
	if h, ok := odim.IntAttr(f.Attrs, "height"); ok {
		meta.RadarHeight = int(h)
	}
	if vcp, ok := odim.IntAttr(f.Attrs, "vcp"); ok {
		meta.VCP = int(vcp)
	}

	heights := f.Heights()
	levels := make([]Level, 0, len(heights))
	for i, height := range heights {
		quantities := make(map[string]odim.Sample, len(f.Quantities))
		for name, samples := range f.Quantities {
			if name == odim.QuantityHeight {
				continue
			}
			quantities[name] = samples[i]
		}
		levels = append(levels, Level{Height: height, Quantities: quantities})
	}

	return &Profile{Meta: meta, Levels: levels}
}

// NormalizationError reports a required, non-defaultable field missing
// after extraction. All other gaps degrade to sentinel values instead.
type NormalizationError struct {
	Field string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize: required field %q missing", e.Field)
}
