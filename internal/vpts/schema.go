package vpts

// Schema is the explicit, immutable ruleset for one VPTS CSV version: the
// ordered output columns, the source and rendering rule for each, and the
// missing-value sentinels. It is passed to the Normalizer as a value; no
// package-level mutable state.
type Schema struct {
	Version  string
	Nodata   string // token for "not measured"
	Undetect string // token for "below detection threshold"
	Columns  []Column
}

// ColumnSource names where a column's value comes from.
type ColumnSource uint8

const (
	// FromQuantity pulls the level's sample for Column.Quantity.
	FromQuantity ColumnSource = iota
	// FromRadar emits the station code. Required: empty fails the row.
	FromRadar
	// FromDatetime emits the scan timestamp as ISO 8601 UTC. Required.
	FromDatetime
	// FromHeight emits the level altitude as an integer. Required.
	FromHeight
	// FromRCS, FromSdVvpThreshold, FromVCP, FromLongitude, FromLatitude,
	// FromRadarHeight and FromWavelength emit scan metadata.
	FromRCS
	FromSdVvpThreshold
	FromVCP
	FromLongitude
	FromLatitude
	FromRadarHeight
	FromWavelength
)

// ColumnFormat selects the rendering rule for a column.
type ColumnFormat uint8

const (
	// FormatNumber renders a fixed-point number with Column.Precision
	// decimals (0 keeps the shortest float representation).
	FormatNumber ColumnFormat = iota
	// FormatInt renders an integer.
	FormatInt
	// FormatBool renders lowercase "true"/"false" from a 0/1 sample.
	FormatBool
	// FormatTime renders 2006-01-02T15:04:05Z.
	FormatTime
	// FormatString renders a string verbatim.
	FormatString
)

// Column maps one output column to its source, conversion, and precision.
type Column struct {
	Name      string
	Source    ColumnSource
	Quantity  string // ODIM quantity name when Source is FromQuantity
	Format    ColumnFormat
	Precision int // decimals for FormatNumber
}

// DefaultSchema returns the VPTS CSV v1 ruleset. Column order defines the
// output column order; (radar, datetime, height) is the row sort key.
func DefaultSchema() Schema {
	return Schema{
		Version:  "v1",
		Nodata:   "",
		Undetect: "NaN",
		Columns: []Column{
			{Name: "radar", Source: FromRadar, Format: FormatString},
			{Name: "datetime", Source: FromDatetime, Format: FormatTime},
			{Name: "height", Source: FromHeight, Format: FormatInt},
			{Name: "u", Source: FromQuantity, Quantity: "u", Format: FormatNumber, Precision: 2},
			{Name: "v", Source: FromQuantity, Quantity: "v", Format: FormatNumber, Precision: 2},
			{Name: "w", Source: FromQuantity, Quantity: "w", Format: FormatNumber, Precision: 2},
			{Name: "ff", Source: FromQuantity, Quantity: "ff", Format: FormatNumber, Precision: 2},
			{Name: "dd", Source: FromQuantity, Quantity: "dd", Format: FormatNumber, Precision: 1},
			{Name: "sd_vvp", Source: FromQuantity, Quantity: "sd_vvp", Format: FormatNumber, Precision: 2},
			{Name: "gap", Source: FromQuantity, Quantity: "gap", Format: FormatBool},
			{Name: "eta", Source: FromQuantity, Quantity: "eta", Format: FormatNumber, Precision: 1},
			{Name: "dens", Source: FromQuantity, Quantity: "dens", Format: FormatNumber, Precision: 2},
			{Name: "dbz", Source: FromQuantity, Quantity: "dbz", Format: FormatNumber, Precision: 2},
			{Name: "dbz_all", Source: FromQuantity, Quantity: "DBZH", Format: FormatNumber, Precision: 2},
			{Name: "n", Source: FromQuantity, Quantity: "n", Format: FormatInt},
			{Name: "n_dbz", Source: FromQuantity, Quantity: "n_dbz", Format: FormatInt},
			{Name: "n_all", Source: FromQuantity, Quantity: "n_all", Format: FormatInt},
			{Name: "n_dbz_all", Source: FromQuantity, Quantity: "n_dbz_all", Format: FormatInt},
			{Name: "rcs", Source: FromRCS, Format: FormatNumber, Precision: 2},
			{Name: "sd_vvp_threshold", Source: FromSdVvpThreshold, Format: FormatNumber, Precision: 1},
			{Name: "vcp", Source: FromVCP, Format: FormatInt},
			{Name: "radar_longitude", Source: FromLongitude, Format: FormatNumber, Precision: 6},
			{Name: "radar_latitude", Source: FromLatitude, Format: FormatNumber, Precision: 6},
			{Name: "radar_height", Source: FromRadarHeight, Format: FormatInt},
			{Name: "radar_wavelength", Source: FromWavelength, Format: FormatNumber, Precision: 6},
		},
	}
}

// Header returns the column names in output order.
func (s Schema) Header() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
