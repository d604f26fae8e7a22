// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cart

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural failures. Decode-time corruption
// errors (ErrHeaderCorrupt, ErrFooterCorrupt) indicate that the input
// is not a valid cart container or was truncated. Encoding errors
// (ErrHeaderEncoding, ErrFooterEncoding) come from internal sanity
// checks on self-built fixed-size structures and should be unreachable.
var (
	// ErrHeaderCorrupt indicates the mandatory header failed
	// validation: bad magic, unsupported version, or a nonzero
	// reserved field.
	ErrHeaderCorrupt = errors.New("cart: mandatory header corrupt")

	// ErrFooterCorrupt indicates the mandatory footer failed
	// validation, or the bytes trailing the compressed body are too
	// short to contain the footer structures it declares.
	ErrFooterCorrupt = errors.New("cart: mandatory footer corrupt")

	// ErrHeaderEncoding indicates an internally built mandatory
	// header did not come out at its fixed size.
	ErrHeaderEncoding = errors.New("cart: mandatory header could not be encoded")

	// ErrFooterEncoding indicates an internally built mandatory
	// footer did not come out at its fixed size.
	ErrFooterEncoding = errors.New("cart: mandatory footer could not be encoded")

	// ErrKeyLength indicates a cipher key override that is not
	// exactly KeySize bytes.
	ErrKeyLength = errors.New("cart: cipher key must be exactly 16 bytes")
)

// MetadataError wraps a JSON encoding or decoding failure on an
// optional header or footer block. On decode, this is the practical
// signal for a wrong cipher key: the format carries no integrity
// check, so a mismatched keystream turns the metadata block into
// bytes that fail to parse as JSON.
type MetadataError struct {
	// Section is "header" or "footer".
	Section string

	// Err is the underlying encoding/json error.
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("cart: %s metadata: %v", e.Section, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// IsMetadataError reports whether err is a metadata codec failure.
// When returned from Unpack or DecodeHeaderMetadata this usually
// means the container was packed with a different key.
func IsMetadataError(err error) bool {
	var metadataError *MetadataError
	return errors.As(err, &metadataError)
}
