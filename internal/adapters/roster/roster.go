// Package roster reads team rosters from delimited text files.
//
// The first record is a header that must name a "number" and a "name"
// column, in any order. Other columns are ignored.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/courttime/internal/domain/model"
)

// Header field names.
const (
	numberField = "number"
	nameField   = "name"
)

// ErrMalformedFile reports a roster file that cannot be parsed.
var ErrMalformedFile = errors.New("malformed roster file")

// Option applies a configuration option to the parser.
type Option func(*parser)

type parser struct {
	delimiter rune
}

// WithDelimiter sets the field delimiter. Defaults to ','.
func WithDelimiter(d rune) Option {
	return func(p *parser) {
		if d != 0 && d != '\n' && d != '\r' && d != '"' {
			p.delimiter = d
		}
	}
}

// LoadFile parses the roster stored at path.
func LoadFile(path string, opts ...Option) ([]model.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, opts...)
}

// Parse reads roster entries from r.
func Parse(r io.Reader, opts ...Option) ([]model.RosterEntry, error) {
	p := parser{delimiter: ','}
	for _, opt := range opts {
		opt(&p)
	}

	cr := csv.NewReader(r)
	cr.Comma = p.delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	numberCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case numberField:
			numberCol = i
		case nameField:
			nameCol = i
		}
	}
	if numberCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("%w: header must contain %q and %q", ErrMalformedFile, numberField, nameField)
	}

	var entries []model.RosterEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		if numberCol >= len(rec) || nameCol >= len(rec) {
			return nil, fmt.Errorf("%w: line %d: missing fields", ErrMalformedFile, line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(rec[numberCol]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: line %d: invalid number %q", ErrMalformedFile, line, rec[numberCol])
		}
		entries = append(entries, model.RosterEntry{
			Number: n,
			Name:   strings.TrimSpace(rec[nameCol]),
		})
	}
	return entries, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
