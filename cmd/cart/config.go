// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/cart/lib/cart/digest"
)

// config holds the optional cart config file. All fields have
// sensible zero values, so a missing file behaves like an empty one.
type config struct {
	// Header is default header metadata applied to every pack.
	// Values from --meta override same-named keys.
	Header map[string]any `yaml:"header"`

	// Key is a hex-encoded 16-byte cipher key used when --key is not
	// given.
	Key string `yaml:"key"`

	// Digests selects the digesters recorded on pack. Valid names:
	// md5, sha1, sha256, length, blake3, sha3-256. Defaults to the
	// standard set (md5, sha1, sha256, length) when empty.
	Digests []string `yaml:"digests"`
}

// configPath resolves the config file location: the explicit flag
// value, then $CART_CONFIG, then ~/.config/cart/config.yaml. There is
// no further discovery chain.
func configPath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if env := os.Getenv("CART_CONFIG"); env != "" {
		return env, true
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(configDir, "cart", "config.yaml"), false
}

// loadConfig reads and parses the config file at path. A missing file
// is an error only when the path was explicitly requested; the
// default location is allowed to not exist.
func loadConfig(path string, explicit bool) (*config, error) {
	if path == "" {
		return &config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var parsed config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &parsed, nil
}

// digesters builds the digester list the config selects, in the
// order given. An empty selection means the standard default set.
func (c *config) digesters() ([]digest.Digester, error) {
	if len(c.Digests) == 0 {
		return digest.Defaults(), nil
	}

	digesters := make([]digest.Digester, 0, len(c.Digests))
	for _, name := range c.Digests {
		switch name {
		case "md5":
			digesters = append(digesters, digest.NewMD5())
		case "sha1":
			digesters = append(digesters, digest.NewSHA1())
		case "sha256":
			digesters = append(digesters, digest.NewSHA256())
		case "length":
			digesters = append(digesters, digest.NewLength())
		case "blake3":
			digesters = append(digesters, digest.NewBLAKE3())
		case "sha3-256":
			digesters = append(digesters, digest.NewSHA3_256())
		default:
			return nil, fmt.Errorf("unknown digest %q in config", name)
		}
	}
	return digesters, nil
}
