// Package csvio reads registry CSV files whose encoding and delimiter are not
// known up front.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding is one candidate text encoding, tried in preference order.
type Encoding struct {
	Name   string
	decode func([]byte) (string, bool)
}

// PreferredEncodings is the order in which source files are decoded.
var PreferredEncodings = []Encoding{
	{Name: "utf-8-sig", decode: decodeUTF8},
	{Name: "windows-1251", decode: decodeCharmap(charmap.Windows1251)},
}

// EncodingError is returned when a file cannot be read under any of the
// preferred encodings. Nothing from the file is used in that case.
type EncodingError struct {
	Path  string
	Tried []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot decode %s (tried %s)", e.Path, strings.Join(e.Tried, ", "))
}

// Decode returns the text of data under the first encoding that accepts it,
// with any UTF-8 byte-order mark removed.
func Decode(path string, data []byte) (string, string, error) {
	tried := make([]string, 0, len(PreferredEncodings))
	for _, enc := range PreferredEncodings {
		if text, ok := enc.decode(data); ok {
			return text, enc.Name, nil
		}
		tried = append(tried, enc.Name)
	}
	return "", "", &EncodingError{Path: path, Tried: tried}
}

func decodeUTF8(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func decodeCharmap(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(data []byte) (string, bool) {
		out, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		// Bytes unassigned in the code page decode to U+FFFD
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

// SniffDelimiter picks the most frequent candidate separator on the first
// line, defaulting to a comma.
func SniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// Reader yields header-keyed records from a decoded CSV file.
type Reader struct {
	Path     string
	Encoding string
	Header   []string
	r        *csv.Reader
}

// Open reads and decodes the whole file before parsing, so an encoding
// failure never produces a partial read.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewReader(path, data)
}

// NewReader parses data that has already been loaded into memory.
func NewReader(path string, data []byte) (*Reader, error) {
	text, encName, err := Decode(path, data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = SniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header", path)
		}
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return &Reader{Path: path, Encoding: encName, Header: header, r: r}, nil
}

// Next returns the next record keyed by header name. Short records leave the
// trailing columns absent; it returns io.EOF when the file is exhausted.
func (r *Reader) Next() (map[string]string, error) {
	rec, err := r.NextRecord()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.Header))
	for i, name := range r.Header {
		if i < len(rec) {
			fields[name] = rec[i]
		}
	}
	return fields, nil
}

// NextRecord returns the next raw record in column order.
func (r *Reader) NextRecord() ([]string, error) {
	rec, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: %w", r.Path, err)
	}
	return rec, nil
}

// Column returns the index of the header matching name case-insensitively,
// or -1.
func (r *Reader) Column(name string) int {
	for i, h := range r.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
