// Package codec provides document stream serialization.
package codec

import (
	"bufio"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/skaldby/projoin/internal/document"
)

// json is a drop-in replacement for encoding/json with better performance.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxScanTokenSize = 10 * 1024 * 1024 // 10MB

// EncodeJSONL writes documents as JSON Lines to w, one document per line.
func EncodeJSONL(w io.Writer, docs []document.Document) error {
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}

// DecodeJSONL reads JSON Lines from r. Empty lines are skipped.
func DecodeJSONL(r io.Reader) ([]document.Document, error) {
	var docs []document.Document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc document.Document
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
