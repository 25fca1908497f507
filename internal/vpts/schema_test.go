package vpts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The v1 column set and ordering are part of the published data contract;
// any change here breaks downstream consumers.
func TestDefaultSchemaColumns(t *testing.T) {
	want := []string{
		"radar", "datetime", "height",
		"u", "v", "w", "ff", "dd", "sd_vvp", "gap", "eta", "dens",
		"dbz", "dbz_all", "n", "n_dbz", "n_all", "n_dbz_all",
		"rcs", "sd_vvp_threshold", "vcp",
		"radar_longitude", "radar_latitude", "radar_height", "radar_wavelength",
	}
	assert.Equal(t, want, DefaultSchema().Header())
}

func TestDefaultSchemaSentinels(t *testing.T) {
	s := DefaultSchema()
	assert.Equal(t, "v1", s.Version)
	assert.Equal(t, "", s.Nodata)
	assert.Equal(t, "NaN", s.Undetect)
}

func TestDefaultSchemaQuantitySources(t *testing.T) {
	for _, col := range DefaultSchema().Columns {
		if col.Source == FromQuantity {
			assert.NotEmpty(t, col.Quantity, "column %s needs a source quantity", col.Name)
		}
	}
}
