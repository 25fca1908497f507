package vpts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DescriptorFilename is the frictionless data-package descriptor written
// next to the CSV on request.
const DescriptorFilename = "datapackage.json"

// WriteError reports output that could not be committed. The destination
// path is untouched when this is returned.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteCSV serializes the table to path as UTF-8, comma-delimited,
// newline-terminated rows under a single header line. The write is
// all-or-nothing: data lands in a temp file in the destination directory
// and is renamed into place only on success, so a failed run never leaves
// a truncated file at path.
func WriteCSV(t *Table, schema Schema, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".vpts-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if err := encodeTable(tmp, schema, t); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func encodeTable(w io.Writer, schema Schema, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Header()); err != nil {
		return err
	}
	for _, row := range t.Rows() {
		if err := cw.Write(row.Cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// descriptor is the tabular-data-package wrapper published alongside VPTS
// CSV files.
type descriptor struct {
	Profile   string               `json:"profile"`
	Resources []descriptorResource `json:"resources"`
}

type descriptorResource struct {
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	Profile   string            `json:"profile"`
	Format    string            `json:"format"`
	Mediatype string            `json:"mediatype"`
	Encoding  string            `json:"encoding"`
	Dialect   map[string]string `json:"dialect"`
	Schema    string            `json:"schema"`
}

// WriteDescriptor writes the datapackage.json descriptor for the CSV at
// csvPath into the same directory.
func WriteDescriptor(csvPath string) error {
	content := descriptor{
		Profile: "tabular-data-package",
		Resources: []descriptorResource{{
			Name:      "vpts",
			Path:      filepath.Base(csvPath),
			Profile:   "tabular-data-resource",
			Format:    "csv",
			Mediatype: "text/csv",
			Encoding:  "utf-8",
			Dialect:   map[string]string{"delimiter": ","},
			Schema:    "https://raw.githubusercontent.com/enram/vpts-csv/main/vpts-csv-table-schema.json",
		}},
	}

	data, err := json.MarshalIndent(content, "", "    ")
	if err != nil {
		return err
	}
	path := filepath.Join(filepath.Dir(csvPath), DescriptorFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
