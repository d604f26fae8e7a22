// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// cart packs files into CaRT containers and unpacks them again.
//
// The direction is chosen automatically: input that starts with the
// container magic is unpacked, anything else is packed. Packing
// records the default digest set (md5, sha1, sha256, length) in the
// container footer and stores the file name in the header metadata.
//
//	cart sample.exe                  # pack -> sample.exe.cart
//	cart sample.exe.cart             # unpack -> sample.exe
//	cart -s sample.exe.cart          # print metadata only
//	cart -m '{"poc":"analyst"}' -o - sample.exe > out.cart
//
// An optional YAML config file (--config, $CART_CONFIG, or
// ~/.config/cart/config.yaml) supplies default header metadata, a
// default key, and the digest selection. Flags override config
// values.
//
// The tool is the path-handling collaborator around lib/cart: the
// library itself only ever sees byte streams.
package main
