package core

// textdecode.go turns uploaded CSV bytes into text.
//
// Spreadsheet tools save CSV as UTF-8 with or without a BOM, and some save
// UTF-16 with a BOM. The BOM, if any, picks the decoder; without one the
// bytes are read as UTF-8 and invalid sequences become U+FFFD.

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxImportSize bounds the bytes read for one table import.
const DefaultMaxImportSize = 32 << 20

func textDecoder() transform.Transformer {
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

// DecodeText decodes data to a string, honouring a UTF-8 or UTF-16 BOM.
func DecodeText(data []byte) (string, error) {
	out, _, err := transform.Bytes(textDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

// ReadText reads and decodes r, failing with ErrFileTooLarge once more than
// limit bytes arrive. A limit of zero or less uses DefaultMaxImportSize.
func ReadText(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxImportSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	return DecodeText(data)
}
