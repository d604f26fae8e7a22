// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cart

import (
	"crypto/rc4"
	"fmt"
	"io"
)

// newKeystream returns an RC4 keystream for key. The cart format
// mandates RC4 with a 16-byte key as its obfuscation cipher; it is
// deliberately weak and provides no confidentiality or integrity.
// Its only job is to keep carted samples inert on disk.
func newKeystream(key []byte) (*rc4.Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}
	keystream, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLength, err)
	}
	return keystream, nil
}

// encryptWriter applies a running keystream to every chunk written
// through it before forwarding to the destination. The keystream is
// never reset: one encryptWriter covers exactly one encrypted section
// of the container. It also counts forwarded bytes, which the packer
// uses to track the absolute position of sections written after the
// body.
type encryptWriter struct {
	dst       io.Writer
	keystream *rc4.Cipher
	scratch   []byte
	written   int64
}

func newEncryptWriter(dst io.Writer, keystream *rc4.Cipher) *encryptWriter {
	return &encryptWriter{
		dst:       dst,
		keystream: keystream,
		scratch:   make([]byte, blockSize),
	}
}

func (w *encryptWriter) Write(block []byte) (int, error) {
	if len(block) > len(w.scratch) {
		w.scratch = make([]byte, len(block))
	}
	w.keystream.XORKeyStream(w.scratch[:len(block)], block)

	n, err := w.dst.Write(w.scratch[:len(block)])
	w.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing ciphered block: %w", err)
	}
	return len(block), nil
}

// Flush forwards a flush to the destination when it supports one.
func (w *encryptWriter) Flush() error {
	return flushWriter(w.dst)
}

// decryptReader applies a running keystream to every chunk read
// through it. The raw (still ciphered) bytes of the most recent
// successful read are retained: the decompressor reading through this
// adapter reads ahead past the logical end of the compressed body
// into the footer bytes, and the retained chunk is the only way to
// recover them once the decompressor is torn down.
type decryptReader struct {
	src       io.Reader
	keystream *rc4.Cipher
	scratch   []byte
	trailing  []byte
}

func newDecryptReader(src io.Reader, keystream *rc4.Cipher) *decryptReader {
	return &decryptReader{
		src:       src,
		keystream: keystream,
	}
}

func (r *decryptReader) Read(block []byte) (int, error) {
	if len(block) > len(r.scratch) {
		r.scratch = make([]byte, len(block))
	}

	n, err := r.src.Read(r.scratch[:len(block)])
	if n > 0 {
		// Keep the raw bytes and decrypt into the caller's buffer,
		// so the retained chunk holds the stream bytes exactly as
		// they appear in the file.
		r.trailing = r.scratch[:n]
		r.keystream.XORKeyStream(block[:n], r.scratch[:n])
	}
	return n, err
}

// takeTrailing returns a copy of the raw bytes of the most recent
// read and clears the adapter's buffers. The adapter must not be
// read from afterward.
func (r *decryptReader) takeTrailing() []byte {
	trailing := make([]byte, len(r.trailing))
	copy(trailing, r.trailing)
	r.trailing = nil
	r.scratch = nil
	return trailing
}

// flushWriter flushes w if it exposes a Flush method (bufio.Writer
// and similar buffered sinks). Writers without one are assumed to be
// unbuffered.
func flushWriter(w io.Writer) error {
	if flusher, ok := w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
