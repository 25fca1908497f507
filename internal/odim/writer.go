package odim

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"
)

// QuantitySpec describes one quantity to encode. Values carry the logical
// (post-scaling) samples; the encoder stores the corresponding raw values.
type QuantitySpec struct {
	Name     string
	Nodata   float64 // raw marker written for NoData samples
	Undetect float64 // raw marker written for Undetect samples
	Gain     float64 // version 2 only; 0 means 1
	Offset   float64 // version 2 only
	Values   []Sample
}

// FileSpec describes one container to encode. Used by the fixture
// generator and by tests; production code only reads containers.
type FileSpec struct {
	Version    uint16
	Source     map[string]string
	Timestamp  time.Time
	Attrs      map[string]Attr
	Quantities []QuantitySpec // ordered; must include HGHT
}

// WriteFile encodes spec into a new container file at path.
func WriteFile(path string, spec FileSpec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, spec); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// Encode writes one container to w. Attribute and source ordering is
// sorted so identical specs produce identical bytes.
func Encode(w io.Writer, spec FileSpec) error {
	if _, err := io.WriteString(w, Magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, spec.Version); err != nil {
		return err
	}
	if err := writeString(w, ObjectVP); err != nil {
		return err
	}
	if err := writeString(w, formatSource(spec.Source)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, spec.Timestamp.UTC().Unix()); err != nil {
		return err
	}
	if err := writeAttrs(w, spec.Attrs); err != nil {
		return err
	}

	levels := 0
	for _, q := range spec.Quantities {
		if q.Name == QuantityHeight {
			levels = len(q.Values)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(levels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(spec.Quantities))); err != nil {
		return err
	}

	for _, q := range spec.Quantities {
		if len(q.Values) != levels {
			return fmt.Errorf("quantity %s has %d samples, expected %d", q.Name, len(q.Values), levels)
		}
		if err := writeQuantity(w, spec.Version, q); err != nil {
			return fmt.Errorf("quantity %s: %w", q.Name, err)
		}
	}
	return nil
}

func writeQuantity(w io.Writer, version uint16, q QuantitySpec) error {
	if err := writeString(w, q.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, q.Nodata); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, q.Undetect); err != nil {
		return err
	}

	gain, offset := 1.0, 0.0
	if version >= 2 {
		gain, offset = q.Gain, q.Offset
		if gain == 0 {
			gain = 1
		}
		if err := binary.Write(w, binary.LittleEndian, gain); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, offset); err != nil {
			return err
		}
	}

	raw := make([]float64, len(q.Values))
	for i, s := range q.Values {
		switch s.Flag {
		case NoData:
			raw[i] = q.Nodata
		case Undetect:
			raw[i] = q.Undetect
		default:
			raw[i] = (s.Value - offset) / gain
			if math.IsNaN(raw[i]) || math.IsInf(raw[i], 0) {
				raw[i] = q.Nodata
			}
		}
	}
	return binary.Write(w, binary.LittleEndian, raw)
}

func writeAttrs(w io.Writer, attrs map[string]Attr) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := binary.Write(w, binary.LittleEndian, uint16(len(keys))); err != nil {
		return err
	}
	for _, key := range keys {
		a := attrs[key]
		if err := writeString(w, key); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint8(a.Kind)); err != nil {
			return err
		}
		switch a.Kind {
		case AttrFloat:
			if err := binary.Write(w, binary.LittleEndian, a.Float); err != nil {
				return err
			}
		case AttrInt:
			if err := binary.Write(w, binary.LittleEndian, a.Int); err != nil {
				return err
			}
		case AttrString:
			if err := writeString(w, a.Str); err != nil {
				return err
			}
		default:
			return fmt.Errorf("attribute %q has unknown kind %d", key, a.Kind)
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func formatSource(ids map[string]string) string {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+":"+ids[k])
	}
	return strings.Join(pairs, ",")
}
