package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"chargestation-converter/models"
)

var (
	// ErrMissingHeader is returned when the input ends before the header row.
	ErrMissingHeader = errors.New("csv: missing header row")
	// ErrTooManyFields is returned for a row wider than the header.
	ErrTooManyFields = errors.New("csv: row has more fields than the header")
)

// ReaderOptions controls how the station table is read.
type ReaderOptions struct {
	Encoding      encoding.Encoding
	PreambleLines int
	Delimiter     rune
}

// CSVReader reads raw station rows from a delimited file. It is a single
// forward pass over the file and is not safe for concurrent use.
type CSVReader struct {
	file   *os.File
	reader *csv.Reader
	header []string
	// lineOffset maps csv.Reader line numbers to file line numbers.
	lineOffset int
}

// OpenStationCSV opens path, skips the preamble lines and reads the header
// row. The file is closed again if any of that fails.
func OpenStationCSV(path string, opts ReaderOptions) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}

	r, err := newCSVReader(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

func newCSVReader(src io.Reader, opts ReaderOptions) (*CSVReader, error) {
	var in io.Reader = src
	if opts.Encoding != nil {
		in = decodingReader(src, opts.Encoding)
	}
	br := bufio.NewReader(transform.NewReader(in, crlfNormalizer{}))

	for i := 0; i < opts.PreambleLines; i++ {
		if err := skipLine(br); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrMissingHeader
			}
			return nil, fmt.Errorf("csv: skip preamble: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	return &CSVReader{
		reader:     cr,
		header:     header,
		lineOffset: opts.PreambleLines,
	}, nil
}

// skipLine consumes one line of the preamble. Besides "\n" it accepts the
// other Unicode line separators, since preamble text is free-form.
func skipLine(br *bufio.Reader) error {
	for {
		r, _, err := br.ReadRune()
		if err != nil {
			return err
		}
		switch r {
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			return nil
		}
	}
}

// Header returns the column names of the header row.
func (c *CSVReader) Header() []string {
	return c.header
}

// Next returns the next row, or io.EOF when the input is exhausted.
// Rows shorter than the header are padded with empty values.
func (c *CSVReader) Next() (models.RawRecord, error) {
	fields, err := c.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.RawRecord{}, io.EOF
		}
		return models.RawRecord{}, fmt.Errorf("csv: read row: %w", err)
	}

	line, _ := c.reader.FieldPos(0)
	line += c.lineOffset

	if len(fields) > len(c.header) {
		return models.RawRecord{}, fmt.Errorf("line %d: %w (%d > %d)",
			line, ErrTooManyFields, len(fields), len(c.header))
	}

	values := make(map[string]string, len(c.header))
	for i, name := range c.header {
		if i < len(fields) {
			values[name] = fields[i]
		} else {
			values[name] = ""
		}
	}
	return models.RawRecord{Line: line, Values: values}, nil
}

// ReadAll drains the reader.
func (c *CSVReader) ReadAll() ([]models.RawRecord, error) {
	var rows []models.RawRecord
	for {
		rec, err := c.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

// Close closes the underlying file.
func (c *CSVReader) Close() error {
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}
