// Package embed implements the binary vector codec used for per-domain
// embeddings.bin/manifest.tsv pairs, and the pluggable embedding provider
// capability consulted by ingest and vector search.
package embed

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/brunobiangulo/ragdag/compat"
)

const (
	magic         uint32 = 0x52414744
	formatVersion uint32 = 1
	headerSize           = 32
)

// ErrCorruptEmbeddings is returned when embeddings.bin fails its magic or
// version check, or is too short for the count and dimensions in its
// header. Reading does not compare the header with manifest.tsv.
var ErrCorruptEmbeddings = errors.New("embed: corrupt embeddings file")

// BinName and ManifestName are the two companion file names written into
// every domain directory that has been embedded.
const (
	BinName      = "embeddings.bin"
	ManifestName = "manifest.tsv"
)

// Header is the fixed 32-byte embeddings.bin header.
type Header struct {
	Version   uint32
	Dims      uint32
	Count     uint32
	ModelHash [8]byte
}

// ModelHash returns the first 8 bytes of SHA-256(modelID).
func ModelHash(modelID string) [8]byte {
	full := compat.HashBytes([]byte(modelID))
	raw, _ := hex.DecodeString(full[:16])
	var h [8]byte
	copy(h[:], raw)
	return h
}

// Write persists vectors (len(vectors) == len(chunkPaths), each vector of
// the same dims) into dir's embeddings.bin/manifest.tsv. When append is
// true and a valid, compatible file already exists, incoming chunk paths
// that are already present have their vectors replaced in place; the rest
// are appended. Otherwise a fresh file and manifest are written.
func Write(dir string, vectors [][]float32, chunkPaths []string, modelID string, dims int, appendMode bool) error {
	if len(vectors) != len(chunkPaths) {
		return fmt.Errorf("embed: %d vectors but %d chunk paths", len(vectors), len(chunkPaths))
	}
	for _, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("embed: vector dimension %d, want %d", len(v), dims)
		}
	}

	binPath := filepath.Join(dir, BinName)
	manifestPath := filepath.Join(dir, ManifestName)
	mh := ModelHash(modelID)

	existingVecs := [][]float32{}
	existingManifest := []string{}
	if appendMode {
		if hdr, vecs, err := Read(dir); err == nil && hdr.Version == formatVersion && hdr.Dims == uint32(dims) && hdr.ModelHash == mh {
			manifest, merr := LoadManifest(dir)
			if merr == nil && len(manifest) == len(vecs) {
				existingVecs = vecs
				existingManifest = manifest
			}
		}
	}

	index := make(map[string]int, len(existingManifest))
	for i, p := range existingManifest {
		index[p] = i
	}

	finalVecs := existingVecs
	finalManifest := existingManifest
	for i, p := range chunkPaths {
		if idx, ok := index[p]; ok {
			finalVecs[idx] = vectors[i]
		} else {
			finalVecs = append(finalVecs, vectors[i])
			finalManifest = append(finalManifest, p)
			index[p] = len(finalManifest) - 1
		}
	}

	if err := writeBin(binPath, finalVecs, dims, mh); err != nil {
		return err
	}
	return writeManifest(manifestPath, finalManifest)
}

func writeBin(path string, vectors [][]float32, dims int, mh [8]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("embed: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(dims))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(vectors)))
	copy(header[16:24], mh[:])
	if _, err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("embed: writing header: %w", err)
	}

	buf := make([]byte, 4)
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := w.Write(buf); err != nil {
				tmp.Close()
				return fmt.Errorf("embed: writing vector payload: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("embed: flushing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("embed: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("embed: renaming into place: %w", err)
	}
	return nil
}

func writeManifest(path string, chunkPaths []string) error {
	var b strings.Builder
	for _, p := range chunkPaths {
		b.WriteString(p)
		b.WriteString("\n")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("embed: creating temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("embed: writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("embed: closing manifest temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("embed: renaming manifest into place: %w", err)
	}
	return nil
}

// Read loads the full embeddings.bin at dir, returning its header and the
// decoded vectors. An invalid magic yields ErrCorruptEmbeddings.
func Read(dir string) (Header, [][]float32, error) {
	data, err := os.ReadFile(filepath.Join(dir, BinName))
	if err != nil {
		return Header{}, nil, err
	}
	return decode(data)
}

// MmapRead behaves like Read but reads the file through a buffered reader
// instead of a single ReadFile call. It still loads the whole file into
// memory before decoding, so peak memory is the same as with Read. Go
// offers no portable mmap in the standard library; callers needing true
// zero-copy access should index into Header-described offsets themselves
// via a platform mmap package.
func MmapRead(dir string) (Header, [][]float32, error) {
	f, err := os.Open(filepath.Join(dir, BinName))
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(bufio.NewReader(f))
	if err != nil {
		return Header{}, nil, err
	}
	return decode(data)
}

func decode(data []byte) (Header, [][]float32, error) {
	if len(data) < headerSize {
		return Header{}, nil, ErrCorruptEmbeddings
	}
	if binary.LittleEndian.Uint32(data[0:4]) != magic {
		return Header{}, nil, ErrCorruptEmbeddings
	}
	hdr := Header{
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Dims:    binary.LittleEndian.Uint32(data[8:12]),
		Count:   binary.LittleEndian.Uint32(data[12:16]),
	}
	copy(hdr.ModelHash[:], data[16:24])
	if hdr.Version != formatVersion {
		return Header{}, nil, ErrCorruptEmbeddings
	}

	want := headerSize + int(hdr.Count)*int(hdr.Dims)*4
	if len(data) < want {
		return Header{}, nil, ErrCorruptEmbeddings
	}

	vectors := make([][]float32, hdr.Count)
	offset := headerSize
	for i := 0; i < int(hdr.Count); i++ {
		v := make([]float32, hdr.Dims)
		for j := 0; j < int(hdr.Dims); j++ {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4
		}
		vectors[i] = v
	}
	return hdr, vectors, nil
}

// LoadManifest returns the ordered chunk paths listed in dir's
// manifest.tsv. Extra tab-separated fields, if present, are ignored.
func LoadManifest(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		out = append(out, fields[0])
	}
	return out, nil
}
