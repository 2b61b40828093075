// Package container implements the deployable contract container and its
// companion manifest.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Layout sizes, in bytes.
const (
	magicSize    = 4
	compilerSize = 64
	versionSize  = 4 * 4
	reservedSize = 4
	lengthSize   = 4
	checksumSize = 4

	// HeaderSize is everything in front of the script.
	HeaderSize = magicSize + compilerSize + versionSize + reservedSize + lengthSize
)

// Magic tags every container.
var Magic = [magicSize]byte{'N', 'E', 'F', '3'}

var (
	ErrInvalidMagic = errors.New("invalid container magic")
	ErrTruncated    = errors.New("truncated container")
	ErrReserved     = errors.New("reserved field not zero")
	ErrChecksum     = errors.New("container checksum mismatch")
	ErrCompiler     = errors.New("compiler identifier too long")
)

// Version is the compiler version recorded in a container.
type Version struct {
	Major, Minor, Build, Revision uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Container is a compiled script plus the identity of its compiler.
type Container struct {
	Compiler string
	Version  Version
	Script   []byte
}

// Encode serializes c in the bit-exact container layout.
func (c *Container) Encode() ([]byte, error) {
	if len(c.Compiler) > compilerSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrCompiler, len(c.Compiler), compilerSize)
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(c.Script)+checksumSize)
	copy(buf, Magic[:])
	copy(buf[magicSize:], c.Compiler)

	off := magicSize + compilerSize
	for _, part := range []uint32{c.Version.Major, c.Version.Minor, c.Version.Build, c.Version.Revision} {
		binary.LittleEndian.PutUint32(buf[off:], part)
		off += 4
	}
	off += reservedSize
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(c.Script)))

	buf = append(buf, c.Script...)
	return binary.LittleEndian.AppendUint32(buf, Checksum(buf)), nil
}

// Decode parses and verifies a container.
func Decode(data []byte) (*Container, error) {
	if len(data) < HeaderSize+checksumSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if !bytes.Equal(data[:magicSize], Magic[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:magicSize])
	}
	c := &Container{
		Compiler: strings.TrimRight(string(data[magicSize:magicSize+compilerSize]), "\x00"),
	}
	off := magicSize + compilerSize
	read := func() uint32 {
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return v
	}
	c.Version = Version{Major: read(), Minor: read(), Build: read(), Revision: read()}
	if read() != 0 {
		return nil, ErrReserved
	}
	size := uint64(read())
	if uint64(len(data)) != uint64(HeaderSize)+size+checksumSize {
		return nil, fmt.Errorf("%w: script length %d, container %d bytes", ErrTruncated, size, len(data))
	}
	body := data[:len(data)-checksumSize]
	want := binary.LittleEndian.Uint32(data[len(body):])
	if got := Checksum(body); got != want {
		return nil, fmt.Errorf("%w: have %08x, want %08x", ErrChecksum, got, want)
	}
	c.Script = bytes.Clone(data[HeaderSize:len(body)])
	return c, nil
}

// Checksum XORs data taken as little-endian uint32 chunks. A short final
// chunk is zero-padded.
func Checksum(data []byte) uint32 {
	var sum uint32
	for len(data) >= 4 {
		sum ^= binary.LittleEndian.Uint32(data)
		data = data[4:]
	}
	if len(data) > 0 {
		var tail [4]byte
		copy(tail[:], data)
		sum ^= binary.LittleEndian.Uint32(tail[:])
	}
	return sum
}
