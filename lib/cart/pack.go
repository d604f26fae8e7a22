// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cart

import (
	"fmt"
	"io"
	"maps"

	"github.com/klauspost/compress/zlib"

	"github.com/bureau-foundation/cart/lib/cart/digest"
)

// PackOptions controls a single Pack call.
type PackOptions struct {
	// Header is the optional header metadata. A nil map writes no
	// optional header; an empty non-nil map writes an empty JSON
	// object.
	Header Metadata

	// Footer is the optional footer metadata. Digester results are
	// merged over it (overwriting same-named keys); the caller's map
	// is not modified.
	Footer Metadata

	// Digesters run over every plaintext block before compression,
	// in slice order. Pass digest.Defaults() for the standard set,
	// or nil to record no digests.
	Digesters []digest.Digester

	// Key overrides the default cipher key. It must be exactly
	// KeySize bytes. When set, the container's key field is written
	// as zeros and unpacking requires the same key.
	Key []byte
}

// Pack encodes everything readable from source into a cart container
// written to sink. The body is streamed in 64 KiB blocks — each block
// is fed to the digesters, compressed (zlib, fastest level), and
// ciphered — so memory use stays constant regardless of input size.
//
// On error the sink may hold a partial container; discarding it is
// the caller's responsibility.
func Pack(source io.Reader, sink io.Writer, options PackOptions) error {
	key := options.Key
	overridden := key != nil
	if overridden {
		if len(key) != KeySize {
			return ErrKeyLength
		}
	} else {
		key = DefaultKey()
	}

	// The optional header is built first: its length is part of the
	// mandatory header.
	var headerBlock []byte
	if options.Header != nil {
		var err error
		headerBlock, err = encodeMetadata(options.Header, key, "header")
		if err != nil {
			return err
		}
	}

	header, err := encodeMandatoryHeader(key, overridden, uint64(len(headerBlock)))
	if err != nil {
		return err
	}

	// position tracks the absolute offset of the next byte written,
	// so that the optional footer's offset can be recorded in the
	// mandatory footer.
	var position uint64
	if _, err := sink.Write(header); err != nil {
		return fmt.Errorf("writing mandatory header: %w", err)
	}
	position += uint64(len(header))

	if len(headerBlock) > 0 {
		if _, err := sink.Write(headerBlock); err != nil {
			return fmt.Errorf("writing optional header: %w", err)
		}
		position += uint64(len(headerBlock))
	}

	// Body chain: plaintext -> zlib -> keystream -> sink. The
	// keystream runs continuously across the whole body.
	bodyKeystream, err := newKeystream(key)
	if err != nil {
		return err
	}
	ciphered := newEncryptWriter(sink, bodyKeystream)
	compressor, err := zlib.NewWriterLevel(ciphered, zlib.BestSpeed)
	if err != nil {
		return fmt.Errorf("creating body compressor: %w", err)
	}

	block := make([]byte, blockSize)
	for {
		n, readErr := source.Read(block)
		if n > 0 {
			for _, digester := range options.Digesters {
				digester.Update(block[:n])
			}
			if _, err := compressor.Write(block[:n]); err != nil {
				return fmt.Errorf("compressing body: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading input: %w", readErr)
		}
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finishing compressed body: %w", err)
	}
	position += uint64(ciphered.written)

	// Digest results overwrite same-named keys in the caller's
	// footer map. The merge happens on a copy so callers keep their
	// original values.
	footerMetadata := options.Footer
	if len(options.Digesters) > 0 {
		merged := make(Metadata, len(options.Footer)+len(options.Digesters))
		maps.Copy(merged, options.Footer)
		for _, digester := range options.Digesters {
			merged[digester.Name()] = digester.Finish()
		}
		footerMetadata = merged
	}

	var footerPosition, footerLength uint64
	if footerMetadata != nil {
		footerBlock, err := encodeMetadata(footerMetadata, key, "footer")
		if err != nil {
			return err
		}
		if _, err := sink.Write(footerBlock); err != nil {
			return fmt.Errorf("writing optional footer: %w", err)
		}
		footerPosition = position
		footerLength = uint64(len(footerBlock))
		position += footerLength
	}

	footer, err := encodeMandatoryFooter(footerPosition, footerLength)
	if err != nil {
		return err
	}
	if _, err := sink.Write(footer); err != nil {
		return fmt.Errorf("writing mandatory footer: %w", err)
	}

	if err := flushWriter(sink); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
