package encoding

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
)

var delimiters = []rune{';', ',', '\t'}

// NewCSVReader decodes r to UTF-8 and returns a csv.Reader whose delimiter is
// whichever of ';', ',' or tab occurs most often in the first line.
func NewCSVReader(r io.Reader) (*csv.Reader, error) {
	utf8r, err := NewUTF8Reader(r)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(utf8r, sniffSize)
	head, _ := br.Peek(sniffSize)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	return reader, nil
}

func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	best, bestCount := ',', 0

	for _, d := range delimiters {
		if n := bytes.Count(head, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}

	return best
}
