package regions

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"living-population/internal/models"
	"living-population/internal/pipeline"
)

//go:embed data/regions.tsv
var embeddedTSV []byte

// requiredColumns must be present in every reference file
var requiredColumns = []string{"통계청행정동코드", "시군구명", "행정동명"}

// Embedded returns the lookup built from the bundled reference table
func Embedded() (*Lookup, error) {
	entries, err := ParseTSV("embedded regions.tsv", embeddedTSV)
	if err != nil {
		return nil, err
	}
	return NewLookup(entries)
}

// LoadFile reads a tab separated reference file in any supported encoding
func LoadFile(path string) (*Lookup, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}
	entries, err := ParseTSV(path, content)
	if err != nil {
		return nil, err
	}
	return NewLookup(entries)
}

// ParseTSV decodes reference rows keyed by the statistics office headers.
// Unknown columns are ignored.
func ParseTSV(name string, content []byte) ([]models.RegionEntry, error) {
	decoders, err := pipeline.ResolveDecoders(nil)
	if err != nil {
		return nil, err
	}
	decoder, err := pipeline.DetectEncoding(name, content, decoders)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoder.NewReader(bytes.NewReader(content)))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &models.SchemaError{Filename: name, Shape: "regions", Missing: requiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}
	header = pipeline.CleanHeaders(header)
	if absent := missing(header); len(absent) > 0 {
		return nil, &models.SchemaError{Filename: name, Shape: "regions", Missing: absent}
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var entries []models.RegionEntry
	for {
		var e models.RegionEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s: line %d: %w", name, len(entries)+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func missing(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var out []string
	for _, col := range requiredColumns {
		if !present[col] {
			out = append(out, col)
		}
	}
	return out
}
