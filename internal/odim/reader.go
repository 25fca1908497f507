package odim

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"
)

// Decode limits guarding against corrupt length prefixes.
const (
	maxAttrs      = 256
	maxQuantities = 256
	maxLevels     = 4096
	maxStringLen  = 4096
)

// Read decodes the profile container at path. Structural problems (bad
// magic, truncation, missing required fields, irregular height grid) are
// reported as *ExtractionError; a recognized container with an unsupported
// schema version is reported via ErrUnsupportedVersion.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	file, err := Decode(bufio.NewReader(f))
	if err != nil {
		if errors.Is(err, ErrUnsupportedVersion) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, &ExtractionError{Path: path, Err: err}
	}
	return file, nil
}

// Decode parses one container from r.
func Decode(r io.Reader) (*File, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:]) != Magic {
		return nil, fmt.Errorf("bad magic %q", magic[:])
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version < MinVersion || version > MaxVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	object, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if object != ObjectVP {
		return nil, fmt.Errorf("object %q is not a vertical profile", object)
	}

	sourceStr, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	var unix int64
	if err := binary.Read(r, binary.LittleEndian, &unix); err != nil {
		return nil, fmt.Errorf("read timestamp: %w", err)
	}

	attrs, err := readAttrs(r)
	if err != nil {
		return nil, err
	}
	for _, key := range requiredAttrs {
		if _, ok := attrs[key]; !ok {
			return nil, fmt.Errorf("missing required attribute %q", key)
		}
	}

	var levels, quants uint16
	if err := binary.Read(r, binary.LittleEndian, &levels); err != nil {
		return nil, fmt.Errorf("read level count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &quants); err != nil {
		return nil, fmt.Errorf("read quantity count: %w", err)
	}
	if levels > maxLevels {
		return nil, fmt.Errorf("implausible level count %d", levels)
	}
	if quants > maxQuantities {
		return nil, fmt.Errorf("implausible quantity count %d", quants)
	}

	quantities := make(map[string][]Sample, quants)
	for i := 0; i < int(quants); i++ {
		name, samples, err := readQuantity(r, version, int(levels))
		if err != nil {
			return nil, fmt.Errorf("quantity %d: %w", i, err)
		}
		quantities[name] = samples
	}

	file := &File{
		Version:    version,
		Object:     object,
		Source:     parseSource(sourceStr),
		Timestamp:  time.Unix(unix, 0).UTC(),
		Attrs:      attrs,
		Levels:     int(levels),
		Quantities: quantities,
	}

	if err := validateHeights(file); err != nil {
		return nil, err
	}
	return file, nil
}

func readAttrs(r io.Reader) (map[string]Attr, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read attribute count: %w", err)
	}
	if count > maxAttrs {
		return nil, fmt.Errorf("implausible attribute count %d", count)
	}

	attrs := make(map[string]Attr, count)
	for i := 0; i < int(count); i++ {
		key, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("attribute %d key: %w", i, err)
		}
		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, fmt.Errorf("attribute %q kind: %w", key, err)
		}

		var a Attr
		switch AttrKind(kind) {
		case AttrFloat:
			a.Kind = AttrFloat
			if err := binary.Read(r, binary.LittleEndian, &a.Float); err != nil {
				return nil, fmt.Errorf("attribute %q value: %w", key, err)
			}
		case AttrInt:
			a.Kind = AttrInt
			if err := binary.Read(r, binary.LittleEndian, &a.Int); err != nil {
				return nil, fmt.Errorf("attribute %q value: %w", key, err)
			}
		case AttrString:
			a.Kind = AttrString
			s, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("attribute %q value: %w", key, err)
			}
			a.Str = s
		default:
			return nil, fmt.Errorf("attribute %q has unknown kind %d", key, kind)
		}
		attrs[key] = a
	}
	return attrs, nil
}

func readQuantity(r io.Reader, version uint16, levels int) (string, []Sample, error) {
	name, err := readString(r)
	if err != nil {
		return "", nil, fmt.Errorf("read name: %w", err)
	}

	var nodata, undetect float64
	if err := binary.Read(r, binary.LittleEndian, &nodata); err != nil {
		return "", nil, fmt.Errorf("%s: read nodata marker: %w", name, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &undetect); err != nil {
		return "", nil, fmt.Errorf("%s: read undetect marker: %w", name, err)
	}

	gain, offset := 1.0, 0.0
	if version >= 2 {
		if err := binary.Read(r, binary.LittleEndian, &gain); err != nil {
			return "", nil, fmt.Errorf("%s: read gain: %w", name, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return "", nil, fmt.Errorf("%s: read offset: %w", name, err)
		}
		if gain == 0 {
			return "", nil, fmt.Errorf("%s: zero gain", name)
		}
	}

	raw := make([]float64, levels)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return "", nil, fmt.Errorf("%s: read samples: %w", name, err)
	}

	samples := make([]Sample, levels)
	for i, v := range raw {
		switch {
		case v == nodata:
			samples[i] = Sample{Flag: NoData}
		case v == undetect:
			samples[i] = Sample{Flag: Undetect}
		default:
			value := v*gain + offset
			if math.IsNaN(value) || math.IsInf(value, 0) {
				samples[i] = Sample{Flag: NoData}
				continue
			}
			samples[i] = Sample{Value: value, Flag: Present}
		}
	}
	return name, samples, nil
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("implausible string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// parseSource splits "NOD:bejab,WMO:06477" into key/value pairs. Malformed
// segments are dropped rather than failing the whole file.
func parseSource(s string) map[string]string {
	ids := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok || key == "" {
			continue
		}
		ids[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return ids
}

// validateHeights enforces the level-grid invariant: HGHT present on every
// level, strictly increasing, with a constant step.
func validateHeights(f *File) error {
	samples, ok := f.Quantities[QuantityHeight]
	if !ok {
		return fmt.Errorf("missing required quantity %q", QuantityHeight)
	}
	for i, s := range samples {
		if s.Flag != Present {
			return fmt.Errorf("height missing at level %d", i)
		}
	}
	if len(samples) < 2 {
		return nil
	}

	step := samples[1].Value - samples[0].Value
	if step <= 0 {
		return fmt.Errorf("heights not strictly increasing at level 1")
	}
	for i := 2; i < len(samples); i++ {
		d := samples[i].Value - samples[i-1].Value
		if d <= 0 {
			return fmt.Errorf("heights not strictly increasing at level %d", i)
		}
		if math.Abs(d-step) > 1e-6 {
			return fmt.Errorf("irregular height grid: step %g at level %d, expected %g", d, i, step)
		}
	}
	return nil
}
