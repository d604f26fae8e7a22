// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cart

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// HeaderInfo describes a container's mandatory header.
type HeaderInfo struct {
	// Key is the cipher key in effect for the container: the
	// override passed by the caller, or the key stored in the file.
	Key []byte

	// MetadataLength is the declared length in bytes of the
	// encrypted optional header block.
	MetadataLength uint64

	// Size is the number of bytes consumed from the source.
	Size int64
}

// DecodeHeader reads and validates only the 38-byte mandatory header.
// Use this to peek at a container without streaming its body; the
// source is left positioned at the start of the optional header.
func DecodeHeader(source io.Reader, keyOverride []byte) (*HeaderInfo, error) {
	key, metadataLength, err := decodeMandatoryHeader(source, keyOverride)
	if err != nil {
		return nil, err
	}
	return &HeaderInfo{
		Key:            key,
		MetadataLength: metadataLength,
		Size:           mandatoryHeaderSize,
	}, nil
}

// DecodeHeaderMetadata reads the mandatory header and, when present,
// the decrypted optional header metadata. The source is left
// positioned at the start of the compressed body.
func DecodeHeaderMetadata(source io.Reader, keyOverride []byte) (*HeaderInfo, Metadata, error) {
	info, err := DecodeHeader(source, keyOverride)
	if err != nil {
		return nil, nil, err
	}
	if info.MetadataLength == 0 {
		return info, nil, nil
	}
	if info.MetadataLength > math.MaxInt64 {
		return nil, nil, ErrHeaderCorrupt
	}

	// CopyN rather than a pre-sized ReadFull: the length field is
	// untrusted, so the buffer grows only as bytes actually arrive
	// and a truncated source fails without a giant allocation.
	var block bytes.Buffer
	if _, err := io.CopyN(&block, source, int64(info.MetadataLength)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, nil, fmt.Errorf("reading optional header: %w", err)
	}
	info.Size += int64(info.MetadataLength)

	metadata, err := decodeMetadata(block.Bytes(), info.Key, "header")
	if err != nil {
		return nil, nil, err
	}
	return info, metadata, nil
}

// Unpack decodes a complete cart container from source, streaming the
// decompressed body to sink, and returns the optional header and
// footer metadata (nil for absent blocks).
//
// The body is pulled through the decompressor in 64 KiB blocks. Once
// the compressed stream reports its logical end, the raw bytes it
// read ahead into — which contain the footer structures — are
// recovered from the cipher adapter and parsed.
//
// On error the sink may hold partially written body content;
// discarding it is the caller's responsibility.
func Unpack(source io.Reader, sink io.Writer, keyOverride []byte) (header, footer Metadata, err error) {
	info, headerMetadata, err := DecodeHeaderMetadata(source, keyOverride)
	if err != nil {
		return nil, nil, err
	}

	// Body chain: source -> keystream -> 64 KiB buffer -> zlib. The
	// buffer keeps the adapter's reads block-sized so its retained
	// chunk is large enough to hold the trailing footer structures.
	bodyKeystream, err := newKeystream(info.Key)
	if err != nil {
		return nil, nil, err
	}
	ciphered := newDecryptReader(source, bodyKeystream)
	buffered := bufio.NewReaderSize(ciphered, blockSize)
	decompressor, err := zlib.NewReader(buffered)
	if err != nil {
		return nil, nil, fmt.Errorf("opening compressed body: %w", err)
	}

	block := make([]byte, blockSize)
	for {
		n, readErr := decompressor.Read(block)
		if n > 0 {
			if _, err := sink.Write(block[:n]); err != nil {
				return nil, nil, fmt.Errorf("writing output: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, nil, fmt.Errorf("decompressing body: %w", readErr)
		}
	}
	if err := decompressor.Close(); err != nil {
		return nil, nil, fmt.Errorf("closing compressed body: %w", err)
	}
	trailing := ciphered.takeTrailing()

	footerMetadataLength, err := parseMandatoryFooter(trailing)
	if err != nil {
		return nil, nil, err
	}

	var footerMetadata Metadata
	if footerMetadataLength > 0 {
		// The length is untrusted input: check it against the bytes
		// actually available before slicing.
		available := uint64(len(trailing) - mandatoryFooterSize)
		if footerMetadataLength > available {
			return nil, nil, ErrFooterCorrupt
		}
		end := len(trailing) - mandatoryFooterSize
		start := end - int(footerMetadataLength)
		footerMetadata, err = decodeMetadata(trailing[start:end], info.Key, "footer")
		if err != nil {
			return nil, nil, err
		}
	}

	if err := flushWriter(sink); err != nil {
		return nil, nil, fmt.Errorf("flushing output: %w", err)
	}
	return headerMetadata, footerMetadata, nil
}
