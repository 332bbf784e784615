package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSelectionRequired is returned when an empty region selection is rejected
	ErrSelectionRequired = errors.New("no region selected")
	// ErrEmptyResult is returned when a merged table has no rows to export
	ErrEmptyResult = errors.New("merged result has no rows")
)

// ValidationError represents invalid caller input
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// EncodingError means no candidate encoding could decode the file
type EncodingError struct {
	Filename string
	Tried    []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: no candidate encoding could decode the file (tried %s)",
		e.Filename, strings.Join(e.Tried, ", "))
}

func (e *EncodingError) IsTransient() bool {
	return false
}

// SchemaError lists the required columns missing from a file's header
type SchemaError struct {
	Filename string
	Shape    string
	Missing  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required %s columns: %s",
		e.Filename, e.Shape, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) IsTransient() bool {
	return false
}

// EmptyResultWarning marks a file that was valid but produced no rows
// after dropping and filtering. It is informational, not a failure.
type EmptyResultWarning struct {
	Filename string
	RowsRead int
	Filter   string
}

func (e *EmptyResultWarning) Error() string {
	return fmt.Sprintf("%s: 0 rows after filtering (%d rows read, filter %s)",
		e.Filename, e.RowsRead, e.Filter)
}

func (e *EmptyResultWarning) IsTransient() bool {
	return false
}

// RowLimitError is returned when a table has more rows than one worksheet holds
type RowLimitError struct {
	Rows  int
	Limit int
}

func (e *RowLimitError) Error() string {
	return fmt.Sprintf("%d rows exceed the worksheet limit of %d", e.Rows, e.Limit)
}

func (e *RowLimitError) IsTransient() bool {
	return false
}

// FileError pairs a file name with the reason it was skipped
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// AggregateFailure is returned when no file in a batch produced output
type AggregateFailure struct {
	Failures []FileError
}

// NewAggregateFailure sorts failures by filename so the message is stable
func NewAggregateFailure(failures []FileError) *AggregateFailure {
	sorted := make([]FileError, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Filename < sorted[j].Filename
	})
	return &AggregateFailure{Failures: sorted}
}

func (e *AggregateFailure) Error() string {
	if len(e.Failures) == 0 {
		return "no processable data: no input files"
	}
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = f.Error()
	}
	return "no processable data:\n" + strings.Join(reasons, "\n")
}

func (e *AggregateFailure) IsTransient() bool {
	return false
}

// Reasons returns one message per failed file
func (e *AggregateFailure) Reasons() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Error()
	}
	return out
}

// ShapeMismatchError is returned when tables of different shapes are merged
type ShapeMismatchError struct {
	Expected string
	Got      string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("cannot merge %s table into %s merge", e.Got, e.Expected)
}

func (e *ShapeMismatchError) IsTransient() bool {
	return false
}

// NotFoundError represents a missing resource
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
