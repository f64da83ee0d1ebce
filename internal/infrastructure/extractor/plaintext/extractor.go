package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, name string, data []byte) (string, error) {
	data = trimBOM(data)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("unsupported binary format: %s", name)
	}
	return strings.TrimSpace(string(data)), nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
