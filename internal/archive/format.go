// Package archive stores generated runs as compressed, checksummed
// snapshots. An archive is one plain-text JSON header line followed by a
// gzip payload holding the encoded dataset.
package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/export"
	"github.com/nvandessel/socialgen/internal/models"
)

// FormatVersion is the current archive header version.
const FormatVersion = 1

// Magic identifies a socialgen archive header.
const Magic = "socialgen-archive"

// Extension is the file extension used for archives.
const Extension = ".sgz"

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// Header is the plain-text first line of an archive.
type Header struct {
	Magic     string           `json:"magic"`
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	RunID     string           `json:"run_id"`
	Seed      uint64           `json:"seed"`
	Schema    constants.Schema `json:"schema"`
	Checksum  string           `json:"checksum"`
	Users     int              `json:"users"`
	Edges     int              `json:"edges"`
	Posts     int              `json:"posts"`
}

// Meta describes the run an archive belongs to.
type Meta struct {
	RunID     string
	Seed      uint64
	CreatedAt time.Time
}

// Write encodes ds with schema, compresses it and writes header plus
// payload to path, creating parent directories.
func Write(path string, ds *models.Dataset, schema constants.Schema, meta Meta) (*Header, error) {
	enc, err := export.EncoderFor(schema)
	if err != nil {
		return nil, err
	}
	payload, err := enc.Encode(ds)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	header := &Header{
		Magic:     Magic,
		Version:   FormatVersion,
		CreatedAt: meta.CreatedAt.UTC(),
		RunID:     meta.RunID,
		Seed:      meta.Seed,
		Schema:    schema,
		Checksum:  checksum(compressed.Bytes()),
		Users:     len(ds.Users),
		Edges:     ds.EdgeCount(),
		Posts:     ds.PostCount(),
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return header, nil
}

// Read verifies the checksum of the archive at path, decompresses the
// payload and decodes it with the schema recorded in the header.
func Read(path string) (*models.Dataset, *Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}

	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(compressed); actual != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	payload, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(payload)) > MaxDecompressedSize {
		return nil, nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	enc, err := export.EncoderFor(header.Schema)
	if err != nil {
		return nil, nil, err
	}
	ds, err := enc.Decode(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding payload: %w", err)
	}
	return ds, header, nil
}

// ReadHeader reads only the header line without decompressing.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// VerifyChecksum checks the integrity of an archive without decompressing it.
func VerifyChecksum(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return err
	}
	compressed, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading compressed payload: %w", err)
	}
	if actual := checksum(compressed); actual != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return nil
}

// IsArchive reports whether the file at path starts with an archive header.
// Plain JSON datasets and unreadable files report false.
func IsArchive(path string) bool {
	_, err := ReadHeader(path)
	return err == nil
}

// FileName returns the archive file name for a run created at t.
// Names sort chronologically.
func FileName(runID string, t time.Time) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return "socialgen-" + t.UTC().Format("20060102-150405") + "-" + short + Extension
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}

	line = bytes.TrimSpace(line)
	if !strings.HasPrefix(string(line), "{") {
		return nil, fmt.Errorf("not an archive: missing header")
	}

	var header Header
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("not an archive: missing header")
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version %d", header.Version)
	}
	return &header, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
