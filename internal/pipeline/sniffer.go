package pipeline

import "bytes"

// SniffLength is the number of leading bytes inspected for the delimiter
const SniffLength = 2048

// DetectDelimiter compares tab and comma counts in the first SniffLength
// bytes. Tab wins only when strictly more frequent. Both are ASCII, so
// counting raw bytes matches a permissive decode of the prefix.
func DetectDelimiter(content []byte) rune {
	sample := content
	if len(sample) > SniffLength {
		sample = sample[:SniffLength]
	}
	if bytes.Count(sample, []byte{'\t'}) > bytes.Count(sample, []byte{','}) {
		return '\t'
	}
	return ','
}

// DelimiterName returns a printable name for a delimiter
func DelimiterName(d rune) string {
	switch d {
	case '\t':
		return "tab"
	case ',':
		return "comma"
	default:
		return string(d)
	}
}
