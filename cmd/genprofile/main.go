// Command genprofile writes deterministic synthetic profile container
// files for development and test runs. The same flags always produce the
// same bytes, so fixtures can be regenerated instead of checked in.
//
// Usage:
//
//	go run ./cmd/genprofile \
//	  -out data/odvp -radars bejab,behel \
//	  -start 2022-11-11T00:00:00Z -scans 12 -interval 5m
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aeroecology/vpts-etl/internal/odim"
)

// stations maps NOD codes to fixed instrument metadata so regenerated
// fixtures keep stable per-station attributes.
var stations = map[string]struct {
	lon, lat   float64
	height     float64
	wavelength float64
}{
	"bejab": {4.789822, 51.1917, 50, 5.3},
	"behel": {5.505, 50.9017, 673, 5.3},
	"nldhl": {4.78997, 52.95334, 51, 5.3},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for container files")
	radars := flag.String("radars", "bejab", "comma-separated NOD station codes")
	startStr := flag.String("start", "2022-11-11T00:00:00Z", "timestamp of the first scan (RFC 3339)")
	scans := flag.Int("scans", 12, "number of scans per station")
	interval := flag.Duration("interval", 5*time.Minute, "time between scans")
	levels := flag.Int("levels", 25, "altitude bins per scan")
	step := flag.Float64("height-step", 200, "height bin size in meters")
	version := flag.Uint("version", 2, "container format version to write")
	seed := flag.Int64("seed", 1, "seed for the value generator")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	total := 0
	for _, radar := range strings.Split(*radars, ",") {
		radar = strings.TrimSpace(radar)
		st, ok := stations[radar]
		if !ok {
			return fmt.Errorf("unknown station %q", radar)
		}

		for i := 0; i < *scans; i++ {
			ts := start.Add(time.Duration(i) * *interval).UTC()
			name := fmt.Sprintf("%s_vp_%s.odvp", radar, ts.Format("20060102T150405Z"))
			spec := scanSpec(radar, st.lon, st.lat, st.height, st.wavelength, ts, *levels, *step, uint16(*version), rng)
			if err := odim.WriteFile(filepath.Join(*out, name), spec); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			total++
		}
		log.Printf("%s: %d scans", radar, *scans)
	}

	log.Printf("wrote %d container files to %s", total, *out)
	return nil
}

// scanSpec synthesizes one scan. Density follows a bell curve over
// height so converted output looks like a real nocturnal migration
// profile; the upper bins degrade into undetect and nodata samples.
func scanSpec(radar string, lon, lat, height, wavelength float64, ts time.Time, levels int, step float64, version uint16, rng *rand.Rand) odim.FileSpec {
	heights := make([]odim.Sample, levels)
	dens := make([]odim.Sample, levels)
	eta := make([]odim.Sample, levels)
	u := make([]odim.Sample, levels)
	v := make([]odim.Sample, levels)
	w := make([]odim.Sample, levels)
	ff := make([]odim.Sample, levels)
	dd := make([]odim.Sample, levels)
	sdVvp := make([]odim.Sample, levels)
	gap := make([]odim.Sample, levels)
	dbz := make([]odim.Sample, levels)
	dbzAll := make([]odim.Sample, levels)
	n := make([]odim.Sample, levels)
	nDbz := make([]odim.Sample, levels)
	nAll := make([]odim.Sample, levels)
	nDbzAll := make([]odim.Sample, levels)

	present := func(v float64) odim.Sample { return odim.Sample{Value: v, Flag: odim.Present} }
	for i := 0; i < levels; i++ {
		heights[i] = present(float64(i) * step)

		// Bell-shaped density peaking around a third of the column.
		peak := float64(levels) / 3
		d := 120 * math.Exp(-math.Pow(float64(i)-peak, 2)/(2*peak)) * (0.8 + 0.4*rng.Float64())

		switch {
		case i >= levels-2:
			// Top bins: instrument ran out of signal.
			dens[i] = odim.Sample{Flag: odim.NoData}
			eta[i] = odim.Sample{Flag: odim.NoData}
			u[i] = odim.Sample{Flag: odim.NoData}
			v[i] = odim.Sample{Flag: odim.NoData}
			w[i] = odim.Sample{Flag: odim.NoData}
			ff[i] = odim.Sample{Flag: odim.NoData}
			dd[i] = odim.Sample{Flag: odim.NoData}
			dbz[i] = odim.Sample{Flag: odim.NoData}
		case d < 1:
			dens[i] = odim.Sample{Flag: odim.Undetect}
			eta[i] = odim.Sample{Flag: odim.Undetect}
			u[i] = odim.Sample{Flag: odim.Undetect}
			v[i] = odim.Sample{Flag: odim.Undetect}
			w[i] = odim.Sample{Flag: odim.Undetect}
			ff[i] = odim.Sample{Flag: odim.Undetect}
			dd[i] = odim.Sample{Flag: odim.Undetect}
			dbz[i] = odim.Sample{Flag: odim.Undetect}
		default:
			speed := 5 + 10*rng.Float64()
			dir := 360 * rng.Float64()
			dens[i] = present(d)
			eta[i] = present(d * 11)
			u[i] = present(speed * math.Sin(dir*math.Pi/180))
			v[i] = present(speed * math.Cos(dir*math.Pi/180))
			w[i] = present(rng.Float64()*2 - 1)
			ff[i] = present(speed)
			dd[i] = present(dir)
			dbz[i] = present(10*math.Log10(d+1) - 15)
		}

		sdVvp[i] = present(2 + 2*rng.Float64())
		gap[i] = present(0)
		if i%7 == 6 {
			gap[i] = present(1)
		}
		dbzAll[i] = present(10*math.Log10(d+5) - 10)
		n[i] = present(float64(1000 + rng.Intn(9000)))
		nDbz[i] = present(float64(800 + rng.Intn(8000)))
		nAll[i] = present(float64(2000 + rng.Intn(10000)))
		nDbzAll[i] = present(float64(1500 + rng.Intn(9000)))
	}

	mk := func(name string, values []odim.Sample, gain, offset float64) odim.QuantitySpec {
		return odim.QuantitySpec{
			Name:     name,
			Nodata:   -9999,
			Undetect: -8888,
			Gain:     gain,
			Offset:   offset,
			Values:   values,
		}
	}

	return odim.FileSpec{
		Version:   version,
		Source:    map[string]string{"NOD": radar},
		Timestamp: ts,
		Attrs: map[string]odim.Attr{
			"rcs_bird":      {Kind: odim.AttrFloat, Float: 11},
			"sd_vvp_thresh": {Kind: odim.AttrFloat, Float: 2},
			"wavelength":    {Kind: odim.AttrFloat, Float: wavelength},
			"lon":           {Kind: odim.AttrFloat, Float: lon},
			"lat":           {Kind: odim.AttrFloat, Float: lat},
			"height":        {Kind: odim.AttrFloat, Float: height},
			"vcp":           {Kind: odim.AttrInt, Int: 12},
		},
		Quantities: []odim.QuantitySpec{
			mk(odim.QuantityHeight, heights, 0, 0),
			mk("u", u, 0, 0),
			mk("v", v, 0, 0),
			mk("w", w, 0, 0),
			mk("ff", ff, 0, 0),
			mk("dd", dd, 0, 0),
			mk("sd_vvp", sdVvp, 0, 0),
			mk("gap", gap, 0, 0),
			mk("eta", eta, 0, 0),
			mk("dens", dens, 0, 0),
			mk("dbz", dbz, 0.5, -32),
			mk("DBZH", dbzAll, 0.5, -32),
			mk("n", n, 0, 0),
			mk("n_dbz", nDbz, 0, 0),
			mk("n_all", nAll, 0, 0),
			mk("n_dbz_all", nDbzAll, 0, 0),
		},
	}
}
