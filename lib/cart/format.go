// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cart

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Framing constants. Changing any of these breaks compatibility with
// every existing cart file.
const (
	headerMagic = "CART"
	footerMagic = "TRAC"

	// majorVersion is the only container version this package reads
	// or writes.
	majorVersion = 1

	// mandatoryHeaderSize is the fixed size of the unencrypted
	// header: magic (4) + version (2) + reserved (8) + key (16) +
	// optional header length (8).
	mandatoryHeaderSize = 38

	// mandatoryFooterSize is the fixed size of the unencrypted
	// footer: magic (4) + reserved (8) + optional footer position
	// (8) + optional footer length (8). These are always the final
	// bytes of a container.
	mandatoryFooterSize = 28

	// reservedValue is written to (and required in) every reserved
	// field.
	reservedValue = 0

	// blockSize is the unit of streaming: input is read, digested,
	// and compressed in blocks of this size, and the decompressor
	// pulls from the source through a buffer of this size.
	blockSize = 64 * 1024
)

// KeySize is the exact size in bytes of every cart cipher key.
const KeySize = 16

// DefaultKey returns the standard cart obfuscation key: the first
// eight decimal digits of pi, one digit per byte, repeated twice.
// This is a published convention shared by all cart implementations,
// not a secret.
func DefaultKey() []byte {
	return []byte{
		0x03, 0x01, 0x04, 0x01, 0x05, 0x09, 0x02, 0x06,
		0x03, 0x01, 0x04, 0x01, 0x05, 0x09, 0x02, 0x06,
	}
}

// encodeMandatoryHeader builds the 38-byte unencrypted header. When
// the caller supplied their own key the key field is written as
// zeros so that a custom key is never persisted inside the file.
func encodeMandatoryHeader(key []byte, overridden bool, metadataLength uint64) ([]byte, error) {
	header := make([]byte, 0, mandatoryHeaderSize)
	header = append(header, headerMagic...)
	header = binary.LittleEndian.AppendUint16(header, uint16(majorVersion))
	header = binary.LittleEndian.AppendUint64(header, reservedValue)
	if overridden {
		header = append(header, make([]byte, KeySize)...)
	} else {
		header = append(header, key...)
	}
	header = binary.LittleEndian.AppendUint64(header, metadataLength)

	if len(header) != mandatoryHeaderSize {
		return nil, ErrHeaderEncoding
	}
	return header, nil
}

// decodeMandatoryHeader reads and validates the 38-byte header from
// source. It returns the cipher key (the override if one was given,
// otherwise the key stored in the file) and the declared length of
// the optional header block.
func decodeMandatoryHeader(source io.Reader, keyOverride []byte) (key []byte, metadataLength uint64, err error) {
	if keyOverride != nil && len(keyOverride) != KeySize {
		return nil, 0, ErrKeyLength
	}

	buffer := make([]byte, mandatoryHeaderSize)
	if _, err := io.ReadFull(source, buffer); err != nil {
		return nil, 0, fmt.Errorf("reading mandatory header: %w", err)
	}

	if !bytes.Equal(buffer[0:4], []byte(headerMagic)) {
		return nil, 0, ErrHeaderCorrupt
	}
	if binary.LittleEndian.Uint16(buffer[4:6]) != majorVersion {
		return nil, 0, ErrHeaderCorrupt
	}
	if binary.LittleEndian.Uint64(buffer[6:14]) != reservedValue {
		return nil, 0, ErrHeaderCorrupt
	}

	key = make([]byte, KeySize)
	if keyOverride != nil {
		copy(key, keyOverride)
	} else {
		copy(key, buffer[14:30])
	}
	metadataLength = binary.LittleEndian.Uint64(buffer[30:38])
	return key, metadataLength, nil
}

// encodeMandatoryFooter builds the 28-byte unencrypted footer.
// position is the absolute offset of the optional footer block in
// the output stream and length its size; both are zero when no
// optional footer was written.
func encodeMandatoryFooter(position, length uint64) ([]byte, error) {
	footer := make([]byte, 0, mandatoryFooterSize)
	footer = append(footer, footerMagic...)
	footer = binary.LittleEndian.AppendUint64(footer, reservedValue)
	footer = binary.LittleEndian.AppendUint64(footer, position)
	footer = binary.LittleEndian.AppendUint64(footer, length)

	if len(footer) != mandatoryFooterSize {
		return nil, ErrFooterEncoding
	}
	return footer, nil
}

// parseMandatoryFooter validates the final 28 bytes of the trailing
// buffer recovered after body decompression and returns the declared
// optional footer length. The position field is ignored: decode
// locates the optional footer relative to the end of the stream, not
// by absolute offset.
func parseMandatoryFooter(trailing []byte) (metadataLength uint64, err error) {
	if len(trailing) < mandatoryFooterSize {
		return 0, ErrFooterCorrupt
	}
	footer := trailing[len(trailing)-mandatoryFooterSize:]

	if !bytes.Equal(footer[0:4], []byte(footerMagic)) {
		return 0, ErrFooterCorrupt
	}
	if binary.LittleEndian.Uint64(footer[4:12]) != reservedValue {
		return 0, ErrFooterCorrupt
	}
	return binary.LittleEndian.Uint64(footer[20:28]), nil
}
