// Command vptsvalidate performs integrity checks on a VPTS CSV file:
// header layout, row shape, (radar, datetime, height) ordering and
// uniqueness, and per-column value validity. It is meant for verifying
// converted output before publication.
//
// Usage:
//
//	go run ./cmd/vptsvalidate -csv out/vpts.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aeroecology/vpts-etl/internal/vpts"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the VPTS CSV file to validate")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath string) int {
	schema := vpts.DefaultSchema()

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read csv: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: empty file")
		return 1
	}

	fmt.Printf("=== VPTS CSV Validation: %s ===\n\n", csvPath)

	phases := []*phase{
		validateHeader(rows[0], schema),
		validateShape(rows[1:], schema),
		validateOrdering(rows[1:], schema),
		validateValues(rows[1:], schema),
	}

	allPassed := true
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		allPassed = false
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Printf("\n%d data rows validated\n", len(rows)-1)
	return 0
}

func validateHeader(header []string, schema vpts.Schema) *phase {
	p := &phase{name: "header layout"}

	want := schema.Header()
	if len(header) != len(want) {
		p.errorf("expected %d columns, got %d", len(want), len(header))
		return p
	}
	for i, name := range want {
		if header[i] != name {
			p.errorf("column %d: expected %q, got %q", i, name, header[i])
		}
	}
	return p
}

func validateShape(rows [][]string, schema vpts.Schema) *phase {
	p := &phase{name: "row shape"}

	width := len(schema.Columns)
	for i, row := range rows {
		if len(row) != width {
			p.errorf("row %d: %d cells, expected %d", i+2, len(row), width)
		}
	}
	return p
}

// validateOrdering checks the (radar, datetime, height) key: ascending
// order and no duplicates.
func validateOrdering(rows [][]string, schema vpts.Schema) *phase {
	p := &phase{name: "key ordering and uniqueness"}

	radarIdx := columnIndex(schema, "radar")
	dtIdx := columnIndex(schema, "datetime")
	hIdx := columnIndex(schema, "height")

	type rowKey struct {
		radar, datetime string
		height          int
	}
	less := func(a, b rowKey) bool {
		if a.radar != b.radar {
			return a.radar < b.radar
		}
		if a.datetime != b.datetime {
			return a.datetime < b.datetime
		}
		return a.height < b.height
	}

	var prev rowKey
	for i, row := range rows {
		if len(row) <= hIdx {
			continue // already reported by row shape
		}
		h, err := strconv.Atoi(row[hIdx])
		if err != nil {
			continue // reported by value validity
		}
		key := rowKey{radar: row[radarIdx], datetime: row[dtIdx], height: h}
		if i > 0 {
			if key == prev {
				p.errorf("row %d: duplicate key %s/%s/%d", i+2, key.radar, key.datetime, key.height)
			} else if less(key, prev) {
				p.errorf("row %d: out of order: %s/%s/%d", i+2, key.radar, key.datetime, key.height)
			}
		}
		prev = key
	}
	return p
}

func validateValues(rows [][]string, schema vpts.Schema) *phase {
	p := &phase{name: "value validity"}

	for i, row := range rows {
		if len(row) != len(schema.Columns) {
			continue
		}
		for j, col := range schema.Columns {
			if err := checkCell(row[j], col, schema); err != nil {
				p.errorf("row %d, column %s: %v", i+2, col.Name, err)
			}
		}
	}
	return p
}

func checkCell(cell string, col vpts.Column, schema vpts.Schema) error {
	if cell == schema.Nodata {
		if col.Source == vpts.FromRadar || col.Source == vpts.FromDatetime || col.Source == vpts.FromHeight {
			return fmt.Errorf("required cell is empty")
		}
		return nil
	}

	switch col.Format {
	case vpts.FormatString:
		return nil
	case vpts.FormatTime:
		if _, err := time.Parse("2006-01-02T15:04:05Z", cell); err != nil {
			return fmt.Errorf("bad timestamp %q", cell)
		}
		return nil
	case vpts.FormatBool:
		if cell != "true" && cell != "false" && cell != schema.Undetect {
			return fmt.Errorf("bad boolean %q", cell)
		}
		return nil
	case vpts.FormatInt:
		if cell == schema.Undetect {
			return nil
		}
		if _, err := strconv.Atoi(cell); err != nil {
			return fmt.Errorf("bad integer %q", cell)
		}
		return nil
	default:
		if cell == schema.Undetect {
			return nil
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return fmt.Errorf("bad number %q", cell)
		}
		return nil
	}
}

func columnIndex(schema vpts.Schema, name string) int {
	for i, col := range schema.Columns {
		if col.Name == name {
			return i
		}
	}
	panic("column not in schema: " + name)
}
