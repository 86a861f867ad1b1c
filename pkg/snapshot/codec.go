// Package snapshot encodes topology snapshots as JSON, optionally framed with
// snappy compression, and moves them between files and object storage.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/mspread/pkg/network"
)

// CompressedSuffix selects snappy framing for file names and object keys.
const CompressedSuffix = ".sz"

// Frame layout: [magic:4][version:1][checksum:4][snappy block:N]. The
// checksum covers the compressed block.
var frameMagic = [4]byte{'M', 'S', 'P', 'Z'}

const (
	frameVersion    = 1
	frameHeaderSize = 4 + 1 + 4
)

// ErrChecksum is returned when a compressed frame fails verification.
var ErrChecksum = errors.New("snapshot checksum mismatch")

// Encode writes s to w as indented JSON.
func Encode(w io.Writer, s network.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Decode reads one JSON snapshot from r.
func Decode(r io.Reader) (network.Snapshot, error) {
	var s network.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// Marshal returns the JSON form of s, wrapped in a snappy frame when
// compressed is set.
func Marshal(s network.Snapshot, compressed bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	if !compressed {
		return buf.Bytes(), nil
	}

	block := snappy.Encode(nil, buf.Bytes())
	out := make([]byte, frameHeaderSize, frameHeaderSize+len(block))
	copy(out, frameMagic[:])
	out[4] = frameVersion
	binary.BigEndian.PutUint32(out[5:], crc32.ChecksumIEEE(block))
	return append(out, block...), nil
}

// Unmarshal decodes data produced by Marshal. Framed and plain JSON input
// are both accepted.
func Unmarshal(data []byte) (network.Snapshot, error) {
	if !IsCompressed(data) {
		return Decode(bytes.NewReader(data))
	}

	if len(data) < frameHeaderSize {
		return network.Snapshot{}, fmt.Errorf("snapshot frame truncated: %d bytes", len(data))
	}
	if v := data[4]; v != frameVersion {
		return network.Snapshot{}, fmt.Errorf("unsupported snapshot frame version %d", v)
	}
	block := data[frameHeaderSize:]
	if crc32.ChecksumIEEE(block) != binary.BigEndian.Uint32(data[5:9]) {
		return network.Snapshot{}, ErrChecksum
	}
	raw, err := snappy.Decode(nil, block)
	if err != nil {
		return network.Snapshot{}, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	return Decode(bytes.NewReader(raw))
}

// IsCompressed reports whether data starts with the snappy frame magic.
func IsCompressed(data []byte) bool {
	return len(data) >= len(frameMagic) && bytes.Equal(data[:len(frameMagic)], frameMagic[:])
}
