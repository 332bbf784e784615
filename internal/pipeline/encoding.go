package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"living-population/internal/models"
)

// Decoder is one candidate text encoding. Validate rejects content that
// does not decode cleanly; NewReader yields UTF-8 text.
type Decoder struct {
	Name      string
	Validate  func(content []byte) error
	NewReader func(r io.Reader) io.Reader
}

// Decode returns content as UTF-8
func (d Decoder) Decode(content []byte) ([]byte, error) {
	return io.ReadAll(d.NewReader(bytes.NewReader(content)))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var replacementChar = []byte("\uFFFD")

// DefaultEncodings is the candidate order used when none is configured
var DefaultEncodings = []string{"utf-8", "utf-8-sig", "cp949", "euc-kr"}

var decoders = map[string]Decoder{
	"utf-8": {
		Name:      "utf-8",
		Validate:  validateUTF8,
		NewReader: func(r io.Reader) io.Reader { return r },
	},
	"utf-8-sig": {
		Name: "utf-8-sig",
		Validate: func(content []byte) error {
			return validateUTF8(bytes.TrimPrefix(content, utf8BOM))
		},
		NewReader: func(r io.Reader) io.Reader {
			return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
		},
	},
	"cp949": {
		Name:      "cp949",
		Validate:  validateCP949,
		NewReader: newKoreanReader,
	},
	"euc-kr": {
		Name:      "euc-kr",
		Validate:  validateEUCKR,
		NewReader: newKoreanReader,
	},
}

// LookupDecoder resolves an encoding name such as "cp949"
func LookupDecoder(name string) (Decoder, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "utf8":
		key = "utf-8"
	case "utf-8-bom", "utf8-sig", "utf-8-with-signature":
		key = "utf-8-sig"
	case "uhc", "ms949", "windows-949":
		key = "cp949"
	case "euckr":
		key = "euc-kr"
	}
	d, ok := decoders[key]
	if !ok {
		return Decoder{}, fmt.Errorf("unsupported encoding %q", name)
	}
	return d, nil
}

// ResolveDecoders maps names to decoders, keeping their order
func ResolveDecoders(names []string) ([]Decoder, error) {
	if len(names) == 0 {
		names = DefaultEncodings
	}
	out := make([]Decoder, 0, len(names))
	for _, n := range names {
		d, err := LookupDecoder(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DetectEncoding tries candidates in order and returns the first that
// validates. Exhausting the list is an *models.EncodingError.
func DetectEncoding(filename string, content []byte, candidates []Decoder) (Decoder, error) {
	tried := make([]string, 0, len(candidates))
	for _, d := range candidates {
		if err := d.Validate(content); err == nil {
			return d, nil
		}
		tried = append(tried, d.Name)
	}
	return Decoder{}, &models.EncodingError{Filename: filename, Tried: tried}
}

func validateUTF8(content []byte) error {
	if !utf8.Valid(content) {
		return fmt.Errorf("invalid utf-8 sequence")
	}
	return nil
}

func newKoreanReader(r io.Reader) io.Reader {
	return transform.NewReader(r, korean.EUCKR.NewDecoder())
}

// validateCP949 decodes with the unified hangul code table and fails on any
// byte sequence the table cannot map. Such bytes surface as U+FFFD.
func validateCP949(content []byte) error {
	found, err := containsReplacement(newKoreanReader(bytes.NewReader(content)))
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("undecodable cp949 sequence")
	}
	return nil
}

// validateEUCKR accepts only ASCII and KS X 1001 pairs, then checks that
// every pair maps to a character.
func validateEUCKR(content []byte) error {
	for i := 0; i < len(content); i++ {
		c := content[i]
		if c < utf8.RuneSelf {
			continue
		}
		if c < 0xA1 || c > 0xFE || i+1 >= len(content) {
			return fmt.Errorf("invalid euc-kr lead byte 0x%02X at offset %d", c, i)
		}
		t := content[i+1]
		if t < 0xA1 || t > 0xFE {
			return fmt.Errorf("invalid euc-kr trail byte 0x%02X at offset %d", t, i+1)
		}
		i++
	}
	return validateCP949(content)
}

// containsReplacement scans r for U+FFFD in fixed size reads
func containsReplacement(r io.Reader) (bool, error) {
	const keep = 2 // len(replacementChar) - 1
	buf := make([]byte, 32*1024+keep)
	carry := 0
	for {
		n, err := r.Read(buf[carry:])
		window := buf[:carry+n]
		if bytes.Contains(window, replacementChar) {
			return true, nil
		}
		if len(window) > keep {
			carry = copy(buf, window[len(window)-keep:])
		} else {
			carry = len(window)
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}
