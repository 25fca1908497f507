// Package odim reads and writes ODIM-VP binary profile containers.
//
// # Container Format
//
// One file holds one radar scan's vertical profile: a set of altitude
// levels with one sample per level for each measured quantity, plus
// scan-level metadata. The layout is little-endian:
//
//	magic     [4]byte "ODVP"
//	version   uint16            supported: 1 and 2
//	object    string            profile files carry "VP"
//	source    string            identifier pairs, e.g. "NOD:bejab,WMO:06477"
//	timestamp int64             Unix seconds, UTC
//	attrs     uint16 count, then per attribute:
//	            key   string
//	            kind  uint8     0=float64, 1=int64, 2=string
//	            value per kind
//	levels    uint16
//	quants    uint16 count, then per quantity:
//	            name     string
//	            nodata   float64   raw marker for "no data"
//	            undetect float64   raw marker for "undetectable"
//	            gain     float64   version 2 only
//	            offset   float64   version 2 only
//	            data     [levels]float64 raw samples
//
// Strings are a uint16 length followed by UTF-8 bytes. Version 2 stores
// scaled samples: a raw value v decodes to v*gain + offset. The nodata and
// undetect markers compare against the raw stored value, before scaling.
//
// # Quantities
//
// Every profile carries HGHT, the altitude of each level in meters. The
// remaining quantities follow the ODIM bird-profile vocabulary (dens, ff,
// dd, eta, sd_vvp, gap, per-class sample counts and so on); any of them
// may be absent from a given file.
package odim

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Magic identifies an ODIM-VP container.
	Magic = "ODVP"

	// MinVersion and MaxVersion bound the supported schema range.
	MinVersion = 1
	MaxVersion = 2

	// ObjectVP is the object type carried by vertical profile files.
	ObjectVP = "VP"
)

// ErrUnsupportedVersion reports a recognized container whose schema version
// falls outside the supported range. Callers distinguish it from structural
// corruption with errors.Is.
var ErrUnsupportedVersion = errors.New("unsupported profile container version")

// ExtractionError reports an unreadable or structurally invalid profile file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Flag classifies one decoded sample.
type Flag uint8

const (
	// Present marks a finite measured value.
	Present Flag = iota
	// NoData marks a level the instrument did not measure.
	NoData
	// Undetect marks a level measured but below the detection threshold.
	Undetect
)

// Sample is one decoded per-level value. Value is meaningful only when
// Flag is Present.
type Sample struct {
	Value float64
	Flag  Flag
}

// AttrKind discriminates attribute value types.
type AttrKind uint8

const (
	AttrFloat AttrKind = iota
	AttrInt
	AttrString
)

// Attr is one scan-level metadata attribute.
type Attr struct {
	Kind  AttrKind
	Float float64
	Int   int64
	Str   string
}

// FloatAttr returns a float attribute, widening integer attributes.
func FloatAttr(attrs map[string]Attr, key string) (float64, bool) {
	a, ok := attrs[key]
	if !ok {
		return 0, false
	}
	switch a.Kind {
	case AttrFloat:
		return a.Float, true
	case AttrInt:
		return float64(a.Int), true
	default:
		return 0, false
	}
}

// IntAttr returns an integer attribute, truncating float attributes.
func IntAttr(attrs map[string]Attr, key string) (int64, bool) {
	a, ok := attrs[key]
	if !ok {
		return 0, false
	}
	switch a.Kind {
	case AttrInt:
		return a.Int, true
	case AttrFloat:
		return int64(a.Float), true
	default:
		return 0, false
	}
}

// File is a fully decoded profile container.
type File struct {
	Version    uint16
	Object     string
	Source     map[string]string // identifier pairs, e.g. "NOD" -> "bejab"
	Timestamp  time.Time         // UTC
	Attrs      map[string]Attr
	Levels     int
	Quantities map[string][]Sample // per-quantity samples, one per level
}

// Heights returns the decoded HGHT values in file order.
func (f *File) Heights() []float64 {
	raw := f.Quantities[QuantityHeight]
	heights := make([]float64, 0, len(raw))
	for _, s := range raw {
		heights = append(heights, s.Value)
	}
	return heights
}

// Required scan-level attributes. Files missing any of these are rejected
// at decode time; vcp is the one instrument parameter allowed to be absent.
var requiredAttrs = []string{
	"rcs_bird",
	"sd_vvp_thresh",
	"wavelength",
	"lon",
	"lat",
	"height",
}

// QuantityHeight is the altitude quantity present in every profile.
const QuantityHeight = "HGHT"
