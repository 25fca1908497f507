package vpts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroecology/vpts-etl/internal/odim"
)

var testMeta = ScanMeta{
	Radar:          "bejab",
	Timestamp:      time.Date(2022, 11, 11, 23, 30, 0, 0, time.UTC),
	RCS:            11,
	SdVvpThreshold: 2,
	VCP:            12,
	Longitude:      4.789822,
	Latitude:       51.1917,
	RadarHeight:    50,
	Wavelength:     5.3,
}

func testLevel(height float64) Level {
	return Level{
		Height: height,
		Quantities: map[string]odim.Sample{
			"u":         {Value: 3.1, Flag: odim.Present},
			"v":         {Value: -1.2, Flag: odim.Present},
			"w":         {Value: 0.5, Flag: odim.Present},
			"ff":        {Value: 8.23, Flag: odim.Present},
			"dd":        {Value: 271.4, Flag: odim.Present},
			"sd_vvp":    {Value: 2.5, Flag: odim.Present},
			"gap":       {Value: 0, Flag: odim.Present},
			"eta":       {Value: 120.8, Flag: odim.Present},
			"dens":      {Value: 10.98, Flag: odim.Present},
			"dbz":       {Value: 3.36, Flag: odim.Present},
			"DBZH":      {Value: 5.12, Flag: odim.Present},
			"n":         {Value: 4763, Flag: odim.Present},
			"n_dbz":     {Value: 10249, Flag: odim.Present},
			"n_all":     {Value: 7610, Flag: odim.Present},
			"n_dbz_all": {Value: 17637, Flag: odim.Present},
		},
	}
}

func TestRowFullMapping(t *testing.T) {
	norm := NewNormalizer(DefaultSchema())

	row, err := norm.Row(testMeta, testLevel(200))
	require.NoError(t, err)

	// Every declared column renders exactly one cell, in schema order.
	header := DefaultSchema().Header()
	require.Len(t, row.Cells, len(header))

	byName := make(map[string]string, len(header))
	for i, name := range header {
		byName[name] = row.Cells[i]
	}

	assert.Equal(t, "bejab", byName["radar"])
	assert.Equal(t, "2022-11-11T23:30:00Z", byName["datetime"])
	assert.Equal(t, "200", byName["height"])
	assert.Equal(t, "3.10", byName["u"])
	assert.Equal(t, "8.23", byName["ff"])
	assert.Equal(t, "271.4", byName["dd"])
	assert.Equal(t, "false", byName["gap"])
	assert.Equal(t, "10.98", byName["dens"])
	assert.Equal(t, "5.12", byName["dbz_all"])
	assert.Equal(t, "4763", byName["n"])
	assert.Equal(t, "17637", byName["n_dbz_all"])
	assert.Equal(t, "11.00", byName["rcs"])
	assert.Equal(t, "2.0", byName["sd_vvp_threshold"])
	assert.Equal(t, "12", byName["vcp"])
	assert.Equal(t, "4.789822", byName["radar_longitude"])
	assert.Equal(t, "51.191700", byName["radar_latitude"])
	assert.Equal(t, "50", byName["radar_height"])
	assert.Equal(t, "5.300000", byName["radar_wavelength"])

	assert.Equal(t, "bejab", row.Radar)
	assert.Equal(t, 200, row.Height)
}

func TestRowSentinelPropagation(t *testing.T) {
	norm := NewNormalizer(DefaultSchema())
	densIdx := columnIndex(t, "dens")

	t.Run("nodata never becomes zero", func(t *testing.T) {
		level := testLevel(200)
		level.Quantities["dens"] = odim.Sample{Flag: odim.NoData}

		row, err := norm.Row(testMeta, level)
		require.NoError(t, err)
		assert.Equal(t, "", row.Cells[densIdx])
		assert.NotEqual(t, "0", row.Cells[densIdx])
	})

	t.Run("undetect renders NaN", func(t *testing.T) {
		level := testLevel(200)
		level.Quantities["dens"] = odim.Sample{Flag: odim.Undetect}

		row, err := norm.Row(testMeta, level)
		require.NoError(t, err)
		assert.Equal(t, "NaN", row.Cells[densIdx])
	})

	t.Run("absent quantity degrades to nodata", func(t *testing.T) {
		level := testLevel(200)
		delete(level.Quantities, "dens")

		row, err := norm.Row(testMeta, level)
		require.NoError(t, err)
		assert.Equal(t, "", row.Cells[densIdx])
	})

	t.Run("gap sentinel passes through", func(t *testing.T) {
		level := testLevel(200)
		level.Quantities["gap"] = odim.Sample{Flag: odim.Undetect}

		row, err := norm.Row(testMeta, level)
		require.NoError(t, err)
		assert.Equal(t, "NaN", row.Cells[columnIndex(t, "gap")])
	})
}

func TestRowGapBool(t *testing.T) {
	norm := NewNormalizer(DefaultSchema())
	gapIdx := columnIndex(t, "gap")

	level := testLevel(200)
	level.Quantities["gap"] = odim.Sample{Value: 1, Flag: odim.Present}
	row, err := norm.Row(testMeta, level)
	require.NoError(t, err)
	assert.Equal(t, "true", row.Cells[gapIdx])

	level.Quantities["gap"] = odim.Sample{Value: 0, Flag: odim.Present}
	row, err = norm.Row(testMeta, level)
	require.NoError(t, err)
	assert.Equal(t, "false", row.Cells[gapIdx])
}

func TestRowUnreportedVCP(t *testing.T) {
	norm := NewNormalizer(DefaultSchema())

	meta := testMeta
	meta.VCP = 0
	row, err := norm.Row(meta, testLevel(200))
	require.NoError(t, err)
	assert.Equal(t, "", row.Cells[columnIndex(t, "vcp")])
}

func TestRowRequiredFields(t *testing.T) {
	norm := NewNormalizer(DefaultSchema())

	t.Run("missing radar", func(t *testing.T) {
		meta := testMeta
		meta.Radar = ""
		_, err := norm.Row(meta, testLevel(200))

		var nErr *NormalizationError
		require.ErrorAs(t, err, &nErr)
		assert.Equal(t, "radar", nErr.Field)
	})

	t.Run("missing timestamp", func(t *testing.T) {
		meta := testMeta
		meta.Timestamp = time.Time{}
		_, err := norm.Row(meta, testLevel(200))

		var nErr *NormalizationError
		require.ErrorAs(t, err, &nErr)
		assert.Equal(t, "datetime", nErr.Field)
	})
}

func TestFromFile(t *testing.T) {
	f := &odim.File{
		Source:    map[string]string{"NOD": "bewid", "WMO": "06477"},
		Timestamp: time.Date(2023, 3, 2, 5, 0, 0, 0, time.UTC),
		Attrs: map[string]odim.Attr{
			"rcs_bird":      {Kind: odim.AttrFloat, Float: 11},
			"sd_vvp_thresh": {Kind: odim.AttrFloat, Float: 2},
			"wavelength":    {Kind: odim.AttrFloat, Float: 5.3},
			"lon":           {Kind: odim.AttrFloat, Float: 5.5},
			"lat":           {Kind: odim.AttrFloat, Float: 49.9},
			"height":        {Kind: odim.AttrFloat, Float: 590},
		},
		Levels: 2,
		Quantities: map[string][]odim.Sample{
			odim.QuantityHeight: {{Value: 0, Flag: odim.Present}, {Value: 200, Flag: odim.Present}},
			"dens":              {{Value: 7.2, Flag: odim.Present}, {Flag: odim.NoData}},
		},
	}

	p := FromFile(f)

	assert.Equal(t, "bewid", p.Meta.Radar)
	assert.Equal(t, 590, p.Meta.RadarHeight)
	assert.Equal(t, 0, p.Meta.VCP)
	require.Len(t, p.Levels, 2)
	assert.Equal(t, 200.0, p.Levels[1].Height)
	assert.Equal(t, odim.NoData, p.Levels[1].Quantities["dens"].Flag)
	_, hasHeight := p.Levels[0].Quantities[odim.QuantityHeight]
	assert.False(t, hasHeight, "HGHT is carried as Level.Height, not a quantity")
}

func columnIndex(t *testing.T, name string) int {
	t.Helper()
	for i, n := range DefaultSchema().Header() {
		if n == name {
			return i
		}
	}
	t.Fatalf("column %q not in schema", name)
	return -1
}
