package keyframes

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is an on-disk encoding of a Document.
type Format string

const (
	// FormatJSON is the reference encoding: an indented JSON array.
	FormatJSON Format = "json"
	// FormatYAML encodes the same structure as YAML.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported document format.
var ErrUnknownFormat = errors.New("keyframes: unknown format")

// ParseFormat validates a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", name)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode writes doc to w.
//
// A nil document is written as an empty array.
func Encode(w io.Writer, doc Document, format Format) error {
	if doc == nil {
		doc = Document{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return errors.Wrap(enc.Encode(doc), "encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "encode yaml")
	}
	return errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// Decode reads a document from r.
func Decode(r io.Reader, format Format) (Document, error) {
	var doc Document

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode json")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "decode yaml")
		}
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// WriteFile writes doc to path.
//
// The document is written to a temporary file in the same directory and renamed
// into place, so a failed run never leaves a partial file behind. Missing parent
// directories are created.
//
// Arguments:
//   - path: Destination file.
//   - doc: The document to persist.
//   - format: The encoding.
//
// Returns:
//   - error: If the directory, the temporary file or the rename fails.
func WriteFile(path string, doc Document, format Format) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, doc, format); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary file")
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "chmod temporary file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// ReadFile reads a document, choosing the format from the file extension.
func ReadFile(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	return Decode(f, format)
}
