// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides the pluggable accumulators that summarize a
// cart container's plaintext body. Each digester consumes every input
// block before compression and finalizes exactly once into a named
// string value, which the packer merges into the container's optional
// footer (overwriting any caller-supplied value under the same name).
//
// The default set — md5, sha1, sha256, and a byte length counter, in
// that order — matches what every cart implementation records.
// Additional digesters (blake3, sha3-256) are available for callers
// that opt in; they are never included by default so that footers
// stay interoperable.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Digester accumulates plaintext body blocks into one named summary
// value. Update is called once per input block in stream order;
// Finish is called exactly once after the final block.
type Digester interface {
	// Update consumes the next plaintext block.
	Update(block []byte)

	// Name is the footer key the finished value is stored under.
	Name() string

	// Finish completes the accumulation and returns the final value:
	// lowercase hex for hash digesters, a decimal string for the
	// length counter.
	Finish() string
}

// Defaults returns the standard digester set in its fixed order:
// md5, sha1, sha256, length.
func Defaults() []Digester {
	return []Digester{
		NewMD5(),
		NewSHA1(),
		NewSHA256(),
		NewLength(),
	}
}

// hashDigester adapts any hash.Hash into a Digester producing
// lowercase hex.
type hashDigester struct {
	name string
	hash hash.Hash
}

func (d *hashDigester) Update(block []byte) {
	// hash.Hash.Write never returns an error.
	d.hash.Write(block)
}

func (d *hashDigester) Name() string {
	return d.name
}

func (d *hashDigester) Finish() string {
	return hex.EncodeToString(d.hash.Sum(nil))
}

// NewMD5 returns the "md5" digester.
func NewMD5() Digester {
	return &hashDigester{name: "md5", hash: md5.New()}
}

// NewSHA1 returns the "sha1" digester.
func NewSHA1() Digester {
	return &hashDigester{name: "sha1", hash: sha1.New()}
}

// NewSHA256 returns the "sha256" digester.
func NewSHA256() Digester {
	return &hashDigester{name: "sha256", hash: sha256.New()}
}

// NewBLAKE3 returns the "blake3" digester. Not part of the default
// set.
func NewBLAKE3() Digester {
	return &hashDigester{name: "blake3", hash: blake3.New()}
}

// NewSHA3_256 returns the "sha3-256" digester. Not part of the
// default set.
func NewSHA3_256() Digester {
	return &hashDigester{name: "sha3-256", hash: sha3.New256()}
}

// lengthDigester counts plaintext bytes.
type lengthDigester struct {
	total uint64
}

// NewLength returns the "length" digester, which records the decimal
// byte count of the body.
func NewLength() Digester {
	return &lengthDigester{}
}

func (d *lengthDigester) Update(block []byte) {
	d.total += uint64(len(block))
}

func (d *lengthDigester) Name() string {
	return "length"
}

func (d *lengthDigester) Finish() string {
	return strconv.FormatUint(d.total, 10)
}
