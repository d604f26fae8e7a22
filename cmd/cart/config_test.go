// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("missing_default_path", func(t *testing.T) {
		loaded, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if loaded.Key != "" || loaded.Header != nil || loaded.Digests != nil {
			t.Errorf("expected a zero config, got %+v", loaded)
		}
	})

	t.Run("missing_explicit_path", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true); err == nil {
			t.Error("an explicitly requested config file must exist")
		}
	})

	t.Run("full_config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
header:
  poc: malware-team
  source: honeypot
key: "0102030405060708090a0b0c0d0e0f10"
digests: [sha256, length, blake3]
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		loaded, err := loadConfig(path, true)
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if loaded.Header["poc"] != "malware-team" {
			t.Errorf("header poc = %v", loaded.Header["poc"])
		}
		if loaded.Key != "0102030405060708090a0b0c0d0e0f10" {
			t.Errorf("key = %q", loaded.Key)
		}

		digesters, err := loaded.digesters()
		if err != nil {
			t.Fatalf("digesters failed: %v", err)
		}
		want := []string{"sha256", "length", "blake3"}
		for i, digester := range digesters {
			if digester.Name() != want[i] {
				t.Errorf("digester %d = %q, want %q", i, digester.Name(), want[i])
			}
		}
	})

	t.Run("malformed_yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(":\t:"), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if _, err := loadConfig(path, true); err == nil {
			t.Error("malformed YAML should fail to load")
		}
	})
}

func TestConfigDigesters(t *testing.T) {
	t.Run("default_set", func(t *testing.T) {
		empty := &config{}
		digesters, err := empty.digesters()
		if err != nil {
			t.Fatalf("digesters failed: %v", err)
		}
		want := []string{"md5", "sha1", "sha256", "length"}
		if len(digesters) != len(want) {
			t.Fatalf("got %d digesters, want %d", len(digesters), len(want))
		}
		for i, digester := range digesters {
			if digester.Name() != want[i] {
				t.Errorf("digester %d = %q, want %q", i, digester.Name(), want[i])
			}
		}
	})

	t.Run("all_names", func(t *testing.T) {
		selection := &config{Digests: []string{"md5", "sha1", "sha256", "length", "blake3", "sha3-256"}}
		digesters, err := selection.digesters()
		if err != nil {
			t.Fatalf("digesters failed: %v", err)
		}
		for i, name := range selection.Digests {
			if digesters[i].Name() != name {
				t.Errorf("digester %d = %q, want %q", i, digesters[i].Name(), name)
			}
		}
	})

	t.Run("unknown_name", func(t *testing.T) {
		bad := &config{Digests: []string{"crc32"}}
		if _, err := bad.digesters(); err == nil {
			t.Error("unknown digest name should fail")
		}
	})
}
