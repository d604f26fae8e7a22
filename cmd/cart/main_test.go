// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig points CART_CONFIG at a config file with the given
// content so tests never pick up the developer's real config.
func writeTestConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	t.Setenv("CART_CONFIG", path)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	writeTestConfig(t, "")
	directory := t.TempDir()

	payload := make([]byte, 50_000)
	if _, err := rand.Read(payload); err != nil {
		t.Fatalf("generating payload: %v", err)
	}
	inputPath := filepath.Join(directory, "sample.bin")
	if err := os.WriteFile(inputPath, payload, 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	var stdout bytes.Buffer
	if err := execute(settings{input: inputPath}, &stdout); err != nil {
		t.Fatalf("pack failed: %v", err)
	}

	cartedPath := inputPath + ".cart"
	if _, err := os.Stat(cartedPath); err != nil {
		t.Fatalf("expected container at %s: %v", cartedPath, err)
	}

	// Unpack to a fresh path; the default output path would collide
	// with the original input.
	unpackedPath := filepath.Join(directory, "restored.bin")
	if err := execute(settings{input: cartedPath, outfile: unpackedPath}, &stdout); err != nil {
		t.Fatalf("unpack failed: %v", err)
	}

	restored, err := os.ReadFile(unpackedPath)
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if !bytes.Equal(restored, payload) {
		t.Error("restored content does not match the original")
	}
}

func TestShowMetadata(t *testing.T) {
	writeTestConfig(t, "")
	directory := t.TempDir()

	inputPath := filepath.Join(directory, "evil.exe")
	if err := os.WriteFile(inputPath, []byte("not actually evil"), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	var stdout bytes.Buffer
	if err := execute(settings{input: inputPath, meta: `{"poc":"analyst"}`}, &stdout); err != nil {
		t.Fatalf("pack failed: %v", err)
	}

	if err := execute(settings{input: inputPath + ".cart", showMeta: true}, &stdout); err != nil {
		t.Fatalf("showmeta failed: %v", err)
	}

	var combined struct {
		Header map[string]any `json:"header"`
		Footer map[string]any `json:"footer"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &combined); err != nil {
		t.Fatalf("parsing showmeta output: %v", err)
	}
	if combined.Header["name"] != "evil.exe" {
		t.Errorf("header name = %v, want evil.exe", combined.Header["name"])
	}
	if combined.Header["poc"] != "analyst" {
		t.Errorf("header poc = %v, want analyst", combined.Header["poc"])
	}
	if combined.Footer["length"] != "17" {
		t.Errorf("footer length = %v, want 17", combined.Footer["length"])
	}
	for _, name := range []string{"md5", "sha1", "sha256"} {
		if _, present := combined.Footer[name]; !present {
			t.Errorf("footer is missing %q", name)
		}
	}
}

func TestPackRefusesToOverwrite(t *testing.T) {
	writeTestConfig(t, "")
	directory := t.TempDir()

	inputPath := filepath.Join(directory, "twice.bin")
	if err := os.WriteFile(inputPath, []byte("content"), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	var stdout bytes.Buffer
	if err := execute(settings{input: inputPath}, &stdout); err != nil {
		t.Fatalf("first pack failed: %v", err)
	}
	if err := execute(settings{input: inputPath}, &stdout); err == nil {
		t.Error("second pack should fail without --force")
	}
	if err := execute(settings{input: inputPath, force: true}, &stdout); err != nil {
		t.Errorf("pack with --force failed: %v", err)
	}
}

func TestKeyFromConfigAndFlag(t *testing.T) {
	keyHex := strings.Repeat("01", 16)
	writeTestConfig(t, "key: \""+keyHex+"\"\n")
	directory := t.TempDir()

	inputPath := filepath.Join(directory, "keyed.bin")
	if err := os.WriteFile(inputPath, []byte("keyed content"), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	var stdout bytes.Buffer
	if err := execute(settings{input: inputPath}, &stdout); err != nil {
		t.Fatalf("pack with config key failed: %v", err)
	}

	// The default key must not open a container packed under the
	// config key, so an empty config plus no flag has to fail.
	writeTestConfig(t, "")
	unpackedPath := filepath.Join(directory, "restored.bin")
	if err := execute(settings{input: inputPath + ".cart", outfile: unpackedPath}, &stdout); err == nil {
		t.Fatal("unpack without the key should fail")
	}

	// The --key flag supplies it again.
	if err := execute(settings{input: inputPath + ".cart", outfile: unpackedPath, keyHex: keyHex, force: true}, &stdout); err != nil {
		t.Fatalf("unpack with --key failed: %v", err)
	}
	restored, err := os.ReadFile(unpackedPath)
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(restored) != "keyed content" {
		t.Errorf("restored content = %q", restored)
	}
}

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name      string
		flagHex   string
		configHex string
		wantNil   bool
		wantError bool
	}{
		{"neither", "", "", true, false},
		{"flag_only", strings.Repeat("ab", 16), "", false, false},
		{"config_only", "", strings.Repeat("cd", 16), false, false},
		{"flag_wins", strings.Repeat("ab", 16), strings.Repeat("cd", 16), false, false},
		{"bad_hex", "zz", "", false, true},
		{"short_key", "abcd", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := resolveKey(tt.flagHex, tt.configHex)
			if tt.wantError {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveKey failed: %v", err)
			}
			if tt.wantNil != (key == nil) {
				t.Errorf("key = %v, wantNil = %v", key, tt.wantNil)
			}
			if tt.name == "flag_wins" && key[0] != 0xAB {
				t.Error("flag key should win over config key")
			}
		})
	}
}

func TestIsCarted(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"container_magic", "CART\x01\x00rest", true},
		{"plain_text", "hello world", false},
		{"short_input", "CA", false},
		{"empty_input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isCarted(bufio.NewReader(strings.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("isCarted failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("isCarted(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
