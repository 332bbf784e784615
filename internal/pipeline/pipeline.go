package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"living-population/internal/models"
)

// DefaultChunkSize is the number of rows transformed per window
const DefaultChunkSize = 10000

// Options configures a Pipeline
type Options struct {
	Decoders  []Decoder
	ChunkSize int
}

// Pipeline normalizes files of one shape and keeps the rows passing filter
type Pipeline struct {
	shape     *models.ShapeDescriptor
	filter    models.FilterSpec
	decoders  []Decoder
	chunkSize int
}

// FileResult is the normalized table of one file and how it was read
type FileResult struct {
	Filename  string
	Encoding  string
	Delimiter rune
	Table     *models.Table
	Stats     RowStats
}

// New creates a pipeline. Missing options fall back to DefaultEncodings
// and DefaultChunkSize.
func New(shape *models.ShapeDescriptor, filter models.FilterSpec, opts Options) (*Pipeline, error) {
	if shape == nil {
		return nil, errors.New("pipeline requires a shape")
	}
	decoders := opts.Decoders
	if len(decoders) == 0 {
		var err error
		if decoders, err = ResolveDecoders(nil); err != nil {
			return nil, err
		}
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		shape:     shape,
		filter:    filter,
		decoders:  decoders,
		chunkSize: chunkSize,
	}, nil
}

// Shape returns the pipeline's shape
func (p *Pipeline) Shape() *models.ShapeDescriptor {
	return p.shape
}

// Filter returns the pipeline's filter
func (p *Pipeline) Filter() models.FilterSpec {
	return p.filter
}

// Process sniffs, validates and transforms one file. Rows are handled in
// windows of the configured chunk size; the result does not depend on it.
func (p *Pipeline) Process(ctx context.Context, filename string, content []byte) (*FileResult, error) {
	src, err := open(filename, content, p.decoders)
	if err != nil {
		return nil, err
	}

	idx, err := ValidateHeader(filename, src.header, p.shape)
	if err != nil {
		return nil, err
	}

	t := &transformer{shape: p.shape, filter: p.filter, index: idx}
	result := &FileResult{
		Filename:  filename,
		Encoding:  src.decoder.Name,
		Delimiter: src.delimiter,
		Table:     &models.Table{Shape: p.shape},
	}

	window := make([][]string, 0, p.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window = window[:0]
		eof := false
		for len(window) < p.chunkSize {
			fields, err := src.reader.Read()
			if err == io.EOF {
				eof = true
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%s: malformed row: %w", filename, err)
			}
			window = append(window, fields)
		}

		var stats RowStats
		result.Table.Records, stats = t.window(window, result.Table.Records)
		result.Stats.add(stats)

		if eof {
			break
		}
	}

	return result, nil
}

// source is a file positioned after its header row
type source struct {
	decoder   Decoder
	delimiter rune
	header    []string
	reader    *csv.Reader
}

func open(filename string, content []byte, decoders []Decoder) (*source, error) {
	delimiter := DetectDelimiter(content)
	decoder, err := DetectEncoding(filename, content, decoders)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoder.NewReader(bytes.NewReader(content)))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &source{decoder: decoder, delimiter: delimiter, reader: reader}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", filename, err)
	}

	return &source{
		decoder:   decoder,
		delimiter: delimiter,
		header:    CleanHeaders(header),
		reader:    reader,
	}, nil
}

// PreviewResult is the cleaned header and first rows of a file
type PreviewResult struct {
	Filename  string     `json:"filename"`
	Encoding  string     `json:"encoding"`
	Delimiter string     `json:"delimiter"`
	Shape     string     `json:"shape"`
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
}

// Preview reads the header and up to n rows without validating the schema
func Preview(filename string, content []byte, n int, decoders []Decoder) (*PreviewResult, error) {
	src, err := open(filename, content, decoders)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Filename:  filename,
		Encoding:  src.decoder.Name,
		Delimiter: DelimiterName(src.delimiter),
		Shape:     shapeFor(filename, src.header).String(),
		Header:    src.header,
		Rows:      [][]string{},
	}

	for len(result.Rows) < n {
		fields, err := src.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: malformed row: %w", filename, err)
		}
		result.Rows = append(result.Rows, fields)
	}
	return result, nil
}

// SniffShape classifies a file by name and falls back to its header.
// It returns ShapeUnknown when neither identifies a shape.
func SniffShape(filename string, content []byte, decoders []Decoder) (models.ShapeKind, error) {
	if kind := models.ClassifyFilename(filename); kind != models.ShapeUnknown {
		return kind, nil
	}
	src, err := open(filename, content, decoders)
	if err != nil {
		return models.ShapeUnknown, err
	}
	return shapeFor(filename, src.header), nil
}

func shapeFor(filename string, header []string) models.ShapeKind {
	if kind := models.ClassifyFilename(filename); kind != models.ShapeUnknown {
		return kind
	}
	if s := DetectShape(header, models.Shapes); s != nil {
		return s.Kind
	}
	return models.ShapeUnknown
}
