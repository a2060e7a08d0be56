package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// header maps column names to their position in a record.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		h[cleanField(c)] = i
	}
	return h
}

// require reports the first required column absent from the header.
func (h header) require(cols []string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return nil
}

// record is one data row read against its file's header.
type record struct {
	h      header
	fields []string
}

// get returns the named field, or "" for a column the file doesn't carry.
func (r record) get(col string) string {
	i, ok := r.h[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// table streams records from one feed file. Every record must carry exactly as
// many fields as the header.
type table struct {
	name   string
	f      *os.File
	reader *csv.Reader
	header header
	line   int
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	return reader
}

// openTable opens a feed file and validates its header against required.
func openTable(path, name string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	reader := newReader(f)
	cols, err := reader.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	// Strip BOM from first field if present
	if len(cols) > 0 {
		cols[0] = strings.TrimPrefix(cols[0], "\xef\xbb\xbf")
	}

	h := newHeader(cols)
	if err := h.require(required); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &table{name: name, f: f, reader: reader, header: h, line: 1}, nil
}

// next returns the next record, or io.EOF when the file is exhausted.
// The returned record is only valid until the following call.
func (t *table) next() (record, error) {
	fields, err := t.reader.Read()
	if err == io.EOF {
		return record{}, io.EOF
	}
	if err != nil {
		line := t.line + 1
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
			err = pe.Err
		}
		return record{}, &RecordError{File: t.name, Line: line, Err: err}
	}
	t.line, _ = t.reader.FieldPos(0)
	for i := range fields {
		fields[i] = cleanField(fields[i])
	}
	return record{h: t.header, fields: fields}, nil
}

func (t *table) Close() error {
	return t.f.Close()
}

// countRecords returns the number of data records in the file at path.
func countRecords(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := newReader(f)
	reader.FieldsPerRecord = -1
	n := -1 // header
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// cleanField trims whitespace and strips any double quotes left by lazy quoting.
func cleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
