// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cart implements the CaRT (Compressed and RC4 Transported)
// container format, used to store and transfer potentially malicious
// files safely: the payload is zlib-compressed and RC4-obfuscated so
// carted samples are inert on disk and invisible to content scanners,
// while arbitrary JSON metadata and computed content digests travel
// with the file in encrypted header and footer blocks.
//
// The cipher is deliberately weak. RC4 under a well-known 16-byte key
// (the first eight digits of pi, twice) is an obfuscation convention
// shared by all cart implementations, not an encryption scheme. A
// caller-supplied key is supported and is then required to unpack,
// but there is still no integrity protection of any kind.
//
// # Container layout
//
// All multi-byte integers are little-endian.
//
//	[mandatory header, 38 bytes, unencrypted]
//	[optional header: RC4(JSON object), length declared in header]
//	[body: RC4(zlib(payload)), streamed]
//	[optional footer: RC4(JSON object)]
//	[mandatory footer, 28 bytes, unencrypted, always the final bytes]
//
// Each encrypted section starts a fresh keystream from position zero;
// the body keystream runs continuously across all body blocks.
//
// # Streaming
//
// Pack and Unpack operate on plain io.Reader/io.Writer pairs and
// never hold the payload in memory: both directions stream in 64 KiB
// blocks, so memory use is a small constant independent of payload
// size. The core never opens files — path handling belongs to callers
// such as cmd/cart.
//
// Digest accumulation (see the digest subpackage) runs over the
// plaintext body during packing and lands in the optional footer,
// overwriting any caller-supplied values under the digester names.
package cart
