package store

import (
	"fmt"

	"github.com/roach88/docql/internal/document"
)

// encodeDocument converts doc to canonical JSON TEXT and its revision.
// Canonical form makes the revision stable across writes of equal
// documents.
func encodeDocument(doc document.Object) (text, revision string, err error) {
	if doc == nil {
		doc = document.Object{}
	}
	data, err := document.MarshalCanonical(doc)
	if err != nil {
		return "", "", fmt.Errorf("marshal document: %w", err)
	}
	revision, err = document.ContentHash(doc)
	if err != nil {
		return "", "", fmt.Errorf("hash document: %w", err)
	}
	return string(data), revision, nil
}

// decodeDocument parses JSON TEXT read back from a doc column or a
// generated projection. Integers keep full int64 precision.
func decodeDocument(text string) (document.Object, error) {
	if text == "" || text == "{}" {
		return document.Object{}, nil
	}
	doc, err := document.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
