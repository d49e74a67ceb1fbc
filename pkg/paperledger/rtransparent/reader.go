// Package rtransparent reads rtransparent indicator exports into publication rows.
package rtransparent

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

// ErrUnsupportedFormat is returned for input files that are not CSV.
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv")

const funderColumn = "funder"

// ReadFile reads a CSV export from path.
func ReadFile(path string) ([]*paperledger.RTransparentPublication, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV decodes rows keyed by header name. Columns the table does not know
// are ignored. NA and empty cells decode to nil.
func ReadCSV(r io.Reader) ([]*paperledger.RTransparentPublication, error) {
	var pubs []*paperledger.RTransparentPublication
	if err := gocsv.UnmarshalCSV(newCellReader(r), &pubs); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []*paperledger.RTransparentPublication{}, nil
		}
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if pubs == nil {
		pubs = []*paperledger.RTransparentPublication{}
	}
	return pubs, nil
}

// cellReader is a gocsv.CSVReader that blanks R's null markers and flattens
// list-valued funder cells before gocsv sees them.
type cellReader struct {
	r      *csv.Reader
	header bool
	funder int
}

func newCellReader(r io.Reader) *cellReader {
	return &cellReader{r: csv.NewReader(r), funder: -1}
}

func (c *cellReader) Read() ([]string, error) {
	record, err := c.r.Read()
	if err != nil {
		return nil, err
	}

	if !c.header {
		c.header = true
		for i, name := range record {
			if strings.TrimSpace(name) == funderColumn {
				c.funder = i
			}
		}
		return record, nil
	}

	for i, cell := range record {
		switch {
		case isNull(cell):
			record[i] = ""
		case i == c.funder:
			record[i] = normalizeFunder(cell)
		default:
			record[i] = strings.TrimSpace(cell)
		}
	}
	return record, nil
}

func (c *cellReader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := c.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func isNull(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "NA", "NaN", "NULL", "null", "None":
		return true
	}
	return false
}

// normalizeFunder flattens list-valued funder cells, written either as a
// JSON array or as an R vector literal c("a", "b"), into "a, b".
func normalizeFunder(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "[") {
		var names []string
		if err := json.Unmarshal([]byte(s), &names); err == nil {
			return strings.Join(names, ", ")
		}
		return raw
	}

	if strings.HasPrefix(s, "c(") && strings.HasSuffix(s, ")") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "c("), ")")
		var names []string
		for _, part := range strings.Split(inner, ",") {
			part = strings.Trim(strings.TrimSpace(part), `"'`)
			if part != "" {
				names = append(names, part)
			}
		}
		return strings.Join(names, ", ")
	}
	return raw
}
