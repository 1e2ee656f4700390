// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifact implements the content-addressed binary persistence
// of spec.md §6: species networks, restricted pair networks, per-pair
// comparisons, and clique tables, each behind a magic-prefixed,
// checksummed binary container, written atomically by write-then-rename
// so that a cancelled task leaves no partial artifact at its final
// location (spec.md §5, "Cancellation and timeouts"). The wire format
// is modelled on a BAM .bai-style index encoding (see DESIGN.md): a fixed
// magic, binary.Write of scalars, length-prefixed slices.
package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/kortschak/orthoclique/internal/failure"
)

// Kind identifies an artifact's container format via its magic prefix.
type Kind [7]byte

var (
	// MagicSpeciesNetwork identifies a persisted Species Network (C2 output).
	MagicSpeciesNetwork = Kind{'S', 'P', 'N', 'E', 'T', '0', '1'}
	// MagicPairNetwork identifies a persisted restricted pair network (C3 output).
	MagicPairNetwork = Kind{'S', 'P', 'P', 'A', 'I', 'R', '1'}
	// MagicComparison identifies a persisted per-pair comparison table (C4 output).
	MagicComparison = Kind{'S', 'P', 'C', 'M', 'P', '0', '1'}
	// MagicCliqueTable identifies a persisted clique table (C5 output).
	MagicCliqueTable = Kind{'S', 'P', 'C', 'L', 'Q', '0', '1'}
)

// Writer wraps a CRC32-checksummed binary.Write sequence behind a magic
// header, buffered and written to a temporary file that is renamed into
// place only on Close, giving the write-then-rename atomicity invariant.
type Writer struct {
	final string
	tmp   *os.File
	buf   *bufio.Writer
	crc   *crcWriter
}

// Create opens a new artifact at path for writing, identified by kind.
// The file is written to a sibling temporary path and renamed into place
// on a successful Close; a Close after an error, or no Close at all,
// leaves no file at path.
func Create(path string, kind Kind) (*Writer, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return nil, failure.New(failure.ArtifactCorrupt, "artifact.Create", err)
	}
	cw := &crcWriter{w: tmp, crc: crc32.NewIEEE()}
	bw := bufio.NewWriter(cw)
	w := &Writer{final: path, tmp: tmp, buf: bw, crc: cw}
	if _, err := bw.Write(kind[:]); err != nil {
		w.abort()
		return nil, failure.New(failure.ArtifactCorrupt, "artifact.Create", err)
	}
	return w, nil
}

// WriteValue binary.Writes v in little-endian form.
func (w *Writer) WriteValue(v interface{}) error {
	if err := binary.Write(w.buf, binary.LittleEndian, v); err != nil {
		return failure.New(failure.ArtifactCorrupt, "artifact.Writer.WriteValue", err)
	}
	return nil
}

// WriteString writes a length-prefixed string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteValue(int32(len(s))); err != nil {
		return err
	}
	if _, err := w.buf.Write([]byte(s)); err != nil {
		return failure.New(failure.ArtifactCorrupt, "artifact.Writer.WriteString", err)
	}
	return nil
}

// WriteFloat64Slice writes a length-prefixed float64 slice.
func (w *Writer) WriteFloat64Slice(v []float64) error {
	if err := w.WriteValue(int64(len(v))); err != nil {
		return err
	}
	return w.WriteValue(v)
}

// Close flushes the buffered writer, appends the trailing CRC32 of
// everything written so far, and renames the temporary file into place.
// On any error the temporary file is removed and no artifact is left at
// the final path.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.abort()
		return failure.New(failure.ArtifactCorrupt, "artifact.Writer.Close", err)
	}
	sum := w.crc.crc.Sum32()
	if err := binary.Write(w.tmp, binary.LittleEndian, sum); err != nil {
		w.abort()
		return failure.New(failure.ArtifactCorrupt, "artifact.Writer.Close", err)
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return failure.New(failure.ArtifactCorrupt, "artifact.Writer.Close", err)
	}
	if err := os.Rename(w.tmp.Name(), w.final); err != nil {
		os.Remove(w.tmp.Name())
		return failure.New(failure.ArtifactCorrupt, "artifact.Writer.Close", err)
	}
	return nil
}

func (w *Writer) abort() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}

type crcWriter struct {
	w   io.Writer
	crc hash32
}

type hash32 interface {
	io.Writer
	Sum32() uint32
}

func (c *crcWriter) Write(p []byte) (int, error) {
	c.crc.Write(p)
	return c.w.Write(p)
}

// Reader reads an artifact written by Writer, verifying its magic kind
// and, on Close, its trailing CRC32.
type Reader struct {
	path string
	r    io.Reader
	crc  *crc32Reader
	f    *os.File
}

type crc32Reader struct {
	r   io.Reader
	crc hash32
}

func (c *crc32Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.crc.Write(p[:n])
	}
	return n, err
}

// Open opens path for reading and verifies its magic matches kind.
func Open(path string, kind Kind) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.New(failure.ArtifactCorrupt, "artifact.Open", err)
	}
	br := bufio.NewReader(f)
	cr := &crc32Reader{r: br, crc: crc32.NewIEEE()}
	var magic Kind
	if _, err := io.ReadFull(cr, magic[:]); err != nil {
		f.Close()
		return nil, failure.New(failure.ArtifactCorrupt, "artifact.Open", err)
	}
	if magic != kind {
		f.Close()
		return nil, failure.New(failure.ArtifactCorrupt, "artifact.Open",
			fmt.Errorf("%s: unexpected magic %q, want %q", path, magic, kind))
	}
	return &Reader{path: path, r: cr, crc: cr, f: f}, nil
}

// ReadValue binary.Reads into v in little-endian form.
func (r *Reader) ReadValue(v interface{}) error {
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		return failure.New(failure.ArtifactCorrupt, "artifact.Reader.ReadValue", err)
	}
	return nil
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	var n int32
	if err := r.ReadValue(&n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", failure.New(failure.ArtifactCorrupt, "artifact.Reader.ReadString", err)
	}
	return string(buf), nil
}

// ReadFloat64Slice reads a length-prefixed float64 slice.
func (r *Reader) ReadFloat64Slice() ([]float64, error) {
	var n int64
	if err := r.ReadValue(&n); err != nil {
		return nil, err
	}
	v := make([]float64, n)
	if err := r.ReadValue(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Close verifies the trailing CRC32 against the bytes read (everything
// except the trailing checksum itself, which the caller must have
// consumed by reading exactly the payload the corresponding Writer
// wrote) and closes the underlying file.
func (r *Reader) Close() error {
	defer r.f.Close()
	want := r.crc.crc.Sum32()
	var got uint32
	if err := binary.Read(r.crc.r, binary.LittleEndian, &got); err != nil {
		return failure.New(failure.ArtifactCorrupt, "artifact.Reader.Close", err)
	}
	if got != want {
		return failure.New(failure.ArtifactCorrupt, "artifact.Reader.Close",
			fmt.Errorf("%s: checksum mismatch: got %x want %x", r.path, got, want))
	}
	return nil
}
