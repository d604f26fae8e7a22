// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/cart/lib/cart"
	"github.com/bureau-foundation/cart/lib/version"
)

func main() {
	os.Exit(run())
}

// settings holds the parsed command line.
type settings struct {
	input      string
	outfile    string
	meta       string
	keyHex     string
	configFlag string
	showMeta   bool
	force      bool
}

func run() int {
	// Handle --version before flag parsing, matching other Bureau
	// binaries.
	for _, argument := range os.Args[1:] {
		if argument == "--version" {
			version.Print("cart")
			return 0
		}
	}

	var parsed settings
	flags := pflag.NewFlagSet("cart", pflag.ContinueOnError)
	flags.StringVarP(&parsed.outfile, "outfile", "o", "", `output path ("-" for stdout)`)
	flags.StringVarP(&parsed.meta, "meta", "m", "", "inline JSON object merged into the header metadata when packing")
	flags.StringVarP(&parsed.keyHex, "key", "k", "", "hex-encoded 16-byte cipher key override")
	flags.BoolVarP(&parsed.showMeta, "showmeta", "s", false, "print container metadata as JSON instead of unpacking")
	flags.BoolVarP(&parsed.force, "force", "f", false, "overwrite an existing output file")
	flags.StringVar(&parsed.configFlag, "config", "", "config file path (default $CART_CONFIG or ~/.config/cart/config.yaml)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	arguments := flags.Args()
	if len(arguments) != 1 {
		fmt.Fprintln(os.Stderr, `usage: cart [flags] <file> ("-" for stdin)`)
		flags.PrintDefaults()
		return 2
	}
	parsed.input = arguments[0]

	if err := execute(parsed, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// execute runs one pack, unpack, or showmeta operation. stdout is
// passed in so tests can capture it.
func execute(parsed settings, stdout io.Writer) error {
	path, explicit := configPath(parsed.configFlag)
	loaded, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}

	key, err := resolveKey(parsed.keyHex, loaded.Key)
	if err != nil {
		return err
	}

	source, err := openInput(parsed.input)
	if err != nil {
		return err
	}
	defer source.Close()

	buffered := bufio.NewReader(source)
	carted, err := isCarted(buffered)
	if err != nil {
		return err
	}

	switch {
	case parsed.showMeta:
		if !carted {
			return fmt.Errorf("%s is not a cart container", parsed.input)
		}
		return showMetadata(buffered, key, stdout)
	case carted:
		return unpackFile(buffered, parsed, key)
	default:
		return packFile(buffered, parsed, loaded, key)
	}
}

// openInput opens the input file, or stdin for "-".
func openInput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return file, nil
}

// isCarted sniffs the container magic without consuming it. Inputs
// shorter than the magic are ordinary files to pack.
func isCarted(buffered *bufio.Reader) (bool, error) {
	magic, err := buffered.Peek(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("reading input: %w", err)
	}
	return string(magic) == "CART", nil
}

// resolveKey decodes the cipher key override: the --key flag wins
// over the config value; neither means the default key.
func resolveKey(flagHex, configHex string) ([]byte, error) {
	encoded := flagHex
	if encoded == "" {
		encoded = configHex
	}
	if encoded == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(key) != cart.KeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(key), cart.KeySize)
	}
	return key, nil
}

// packFile packs the input stream into a container.
func packFile(source io.Reader, parsed settings, loaded *config, key []byte) error {
	header := cart.Metadata{}
	maps.Copy(header, loaded.Header)
	if parsed.meta != "" {
		var inline map[string]any
		if err := json.Unmarshal([]byte(parsed.meta), &inline); err != nil {
			return fmt.Errorf("parsing --meta: %w", err)
		}
		maps.Copy(header, inline)
	}
	if parsed.input != "-" {
		if _, present := header["name"]; !present {
			header["name"] = filepath.Base(parsed.input)
		}
	}
	var headerMetadata cart.Metadata
	if len(header) > 0 {
		headerMetadata = header
	}

	digesters, err := loaded.digesters()
	if err != nil {
		return err
	}

	outputPath := parsed.outfile
	if outputPath == "" {
		if parsed.input == "-" {
			return errors.New("--outfile is required when packing from stdin")
		}
		outputPath = parsed.input + ".cart"
	}
	sink, finish, err := openOutput(outputPath, parsed.force)
	if err != nil {
		return err
	}

	if err := cart.Pack(source, sink, cart.PackOptions{
		Header:    headerMetadata,
		Digesters: digesters,
		Key:       key,
	}); err != nil {
		discardOutput(outputPath, finish)
		return err
	}
	return finish()
}

// unpackFile unpacks a container back into its original content.
func unpackFile(source io.Reader, parsed settings, key []byte) error {
	outputPath := parsed.outfile
	if outputPath == "" {
		if parsed.input == "-" {
			return errors.New("--outfile is required when unpacking from stdin")
		}
		if stripped, found := strings.CutSuffix(parsed.input, ".cart"); found {
			outputPath = stripped
		} else {
			outputPath = parsed.input + ".uncart"
		}
	}
	sink, finish, err := openOutput(outputPath, parsed.force)
	if err != nil {
		return err
	}

	if _, _, err := cart.Unpack(source, sink, key); err != nil {
		discardOutput(outputPath, finish)
		return err
	}
	return finish()
}

// showMetadata decodes the container's metadata, discarding the body,
// and prints it as one JSON object.
func showMetadata(source io.Reader, key []byte, stdout io.Writer) error {
	header, footer, err := cart.Unpack(source, io.Discard, key)
	if err != nil {
		return err
	}

	combined := struct {
		Header cart.Metadata `json:"header,omitempty"`
		Footer cart.Metadata `json:"footer,omitempty"`
	}{Header: header, Footer: footer}

	encoded, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	fmt.Fprintln(stdout, string(encoded))
	return nil
}

// openOutput opens the output destination and returns the writer
// together with a finish function that flushes and closes it. "-"
// writes to stdout, refusing when stdout is a terminal: container
// bytes are binary.
func openOutput(path string, force bool) (io.Writer, func() error, error) {
	if path == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, errors.New("refusing to write binary output to a terminal; redirect stdout or use --outfile")
		}
		buffered := bufio.NewWriter(os.Stdout)
		return buffered, buffered.Flush, nil
	}

	openFlags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		openFlags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, openFlags, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}

	buffered := bufio.NewWriter(file)
	finish := func() error {
		if err := buffered.Flush(); err != nil {
			file.Close()
			return fmt.Errorf("flushing output: %w", err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("closing output: %w", err)
		}
		return nil
	}
	return buffered, finish, nil
}

// discardOutput removes a partially written output file after a
// failed operation. Stdout output cannot be taken back; file output
// should not be left around half-written.
func discardOutput(path string, finish func() error) {
	finish()
	if path != "-" {
		os.Remove(path)
	}
}
