package odim

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(v float64) Sample { return Sample{Value: v, Flag: Present} }

// sampleSpec builds a minimal valid container spec with three levels.
func sampleSpec(version uint16) FileSpec {
	return FileSpec{
		Version:   version,
		Source:    map[string]string{"NOD": "bejab", "WMO": "06477"},
		Timestamp: time.Date(2022, 11, 11, 23, 30, 0, 0, time.UTC),
		Attrs: map[string]Attr{
			"rcs_bird":      {Kind: AttrFloat, Float: 11},
			"sd_vvp_thresh": {Kind: AttrFloat, Float: 2},
			"wavelength":    {Kind: AttrFloat, Float: 5.3},
			"lon":           {Kind: AttrFloat, Float: 4.789822},
			"lat":           {Kind: AttrFloat, Float: 51.19},
			"height":        {Kind: AttrFloat, Float: 50},
			"vcp":           {Kind: AttrInt, Int: 12},
		},
		Quantities: []QuantitySpec{
			{Name: QuantityHeight, Nodata: -9999, Undetect: -8888, Values: []Sample{p(0), p(200), p(400)}},
			{Name: "dens", Nodata: -9999, Undetect: -8888, Values: []Sample{p(12.5), {Flag: NoData}, {Flag: Undetect}}},
			{Name: "ff", Nodata: -9999, Undetect: -8888, Values: []Sample{p(8.2), p(5.1), {Flag: NoData}}},
		},
	}
}

func writeSpec(t *testing.T, spec FileSpec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bejab_vp_20221111T233000Z.odvp")
	require.NoError(t, WriteFile(path, spec))
	return path
}

func TestReadRoundTrip(t *testing.T) {
	for _, version := range []uint16{1, 2} {
		t.Run(map[uint16]string{1: "v1", 2: "v2"}[version], func(t *testing.T) {
			path := writeSpec(t, sampleSpec(version))

			f, err := Read(path)
			require.NoError(t, err)

			assert.Equal(t, version, f.Version)
			assert.Equal(t, ObjectVP, f.Object)
			assert.Equal(t, "bejab", f.Source["NOD"])
			assert.Equal(t, "06477", f.Source["WMO"])
			assert.Equal(t, time.Date(2022, 11, 11, 23, 30, 0, 0, time.UTC), f.Timestamp)
			assert.Equal(t, 3, f.Levels)
			assert.Equal(t, []float64{0, 200, 400}, f.Heights())

			dens := f.Quantities["dens"]
			require.Len(t, dens, 3)
			assert.Equal(t, Sample{Value: 12.5, Flag: Present}, dens[0])
			assert.Equal(t, NoData, dens[1].Flag)
			assert.Equal(t, Undetect, dens[2].Flag)

			vcp, ok := IntAttr(f.Attrs, "vcp")
			require.True(t, ok)
			assert.Equal(t, int64(12), vcp)
			wl, ok := FloatAttr(f.Attrs, "wavelength")
			require.True(t, ok)
			assert.Equal(t, 5.3, wl)
		})
	}
}

func TestReadGainOffset(t *testing.T) {
	spec := sampleSpec(2)
	spec.Quantities = append(spec.Quantities, QuantitySpec{
		Name:     "dbz",
		Nodata:   255,
		Undetect: 254,
		Gain:     0.5,
		Offset:   -32,
		Values:   []Sample{p(-10), p(3.5), {Flag: NoData}},
	})
	path := writeSpec(t, spec)

	f, err := Read(path)
	require.NoError(t, err)

	dbz := f.Quantities["dbz"]
	require.Len(t, dbz, 3)
	assert.InDelta(t, -10, dbz[0].Value, 1e-9)
	assert.InDelta(t, 3.5, dbz[1].Value, 1e-9)
	assert.Equal(t, NoData, dbz[2].Flag)
}

func TestReadUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(9)))

	path := filepath.Join(t.TempDir(), "future.odvp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	var exErr *ExtractionError
	assert.False(t, errors.As(err, &exErr), "version errors must not classify as extraction errors")
}

func TestReadBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.odvp")
	require.NoError(t, os.WriteFile(path, []byte("not a profile at all"), 0o644))

	_, err := Read(path)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, path, exErr.Path)
}

func TestReadTruncated(t *testing.T) {
	path := writeSpec(t, sampleSpec(1))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	short := filepath.Join(t.TempDir(), "short.odvp")
	require.NoError(t, os.WriteFile(short, data[:len(data)/2], 0o644))

	_, err = Read(short)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.odvp"))
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
}

func TestReadMissingRequiredAttr(t *testing.T) {
	spec := sampleSpec(1)
	delete(spec.Attrs, "wavelength")
	path := writeSpec(t, spec)

	_, err := Read(path)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, err.Error(), "wavelength")
}

func TestReadIrregularHeightGrid(t *testing.T) {
	spec := sampleSpec(1)
	spec.Quantities[0].Values = []Sample{p(0), p(200), p(500)}
	path := writeSpec(t, spec)

	_, err := Read(path)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, err.Error(), "irregular height grid")
}

func TestReadDecreasingHeights(t *testing.T) {
	spec := sampleSpec(1)
	spec.Quantities[0].Values = []Sample{p(400), p(200), p(0)}
	path := writeSpec(t, spec)

	_, err := Read(path)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, err.Error(), "strictly increasing")
}

func TestReadMissingHeightQuantity(t *testing.T) {
	spec := sampleSpec(1)
	spec.Quantities = spec.Quantities[1:]
	path := writeSpec(t, spec)

	_, err := Read(path)
	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, err.Error(), QuantityHeight)
}

func TestEncodeDeterministic(t *testing.T) {
	spec := sampleSpec(1)

	var a, b bytes.Buffer
	require.NoError(t, Encode(&a, spec))
	require.NoError(t, Encode(&b, spec))
	assert.Equal(t, a.Bytes(), b.Bytes())
}
