// Package encoding turns uploaded roster files of unknown charset and
// delimiter into UTF-8 CSV readers.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	textenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffSize = 4096

var boms = []struct {
	prefix  []byte
	decoder func() *textenc.Decoder // nil strips the BOM and keeps the bytes
}{
	{prefix: []byte{0xEF, 0xBB, 0xBF}},
	{prefix: []byte{0xFF, 0xFE}, decoder: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder},
	{prefix: []byte{0xFE, 0xFF}, decoder: unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder},
}

// Single-byte charsets chardet may report for spreadsheet exports.
var legacyCharsets = map[string]textenc.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
	"ISO-8859-15":  charmap.ISO8859_15,
}

// NewUTF8Reader returns r decoded to UTF-8. A BOM wins; otherwise valid
// UTF-8 passes through, chardet picks among legacyCharsets, and anything else
// is read as Windows-1252.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peeking input: %w", err)
	}

	for _, bom := range boms {
		if !bytes.HasPrefix(head, bom.prefix) {
			continue
		}

		if bom.decoder == nil {
			_, _ = br.Discard(len(bom.prefix))
			return br, nil
		}

		return transform.NewReader(br, bom.decoder()), nil
	}

	if utf8.Valid(head) {
		return br, nil
	}

	return transform.NewReader(br, detect(head).NewDecoder()), nil
}

func detect(sample []byte) textenc.Encoding {
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil {
		if res.Charset == "UTF-8" {
			return textenc.Nop
		}

		if enc, ok := legacyCharsets[res.Charset]; ok {
			return enc
		}
	}

	return charmap.Windows1252
}
