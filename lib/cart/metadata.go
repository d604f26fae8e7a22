// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cart

import (
	"encoding/json"
)

// Metadata is an arbitrary JSON object carried in a container's
// optional header or footer. Keys are serialized in sorted order, so
// the same map always produces the same bytes.
type Metadata map[string]any

// encodeMetadata serializes metadata to JSON and applies a fresh
// keystream over the result. Each metadata block gets its own
// keystream starting from position zero; this is part of the format.
func encodeMetadata(metadata Metadata, key []byte, section string) ([]byte, error) {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, &MetadataError{Section: section, Err: err}
	}
	keystream, err := newKeystream(key)
	if err != nil {
		return nil, err
	}
	keystream.XORKeyStream(encoded, encoded)
	return encoded, nil
}

// decodeMetadata reverses encodeMetadata. A parse failure is the
// practical wrong-key signal: there is no separate integrity check,
// so a mismatched keystream surfaces as JSON that does not parse.
func decodeMetadata(ciphered, key []byte, section string) (Metadata, error) {
	keystream, err := newKeystream(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphered))
	keystream.XORKeyStream(plaintext, ciphered)

	var metadata Metadata
	if err := json.Unmarshal(plaintext, &metadata); err != nil {
		return nil, &MetadataError{Section: section, Err: err}
	}
	return metadata, nil
}
