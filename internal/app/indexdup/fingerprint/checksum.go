package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/spf13/afero"
)

const (
	// DefaultSampleBytes is how much of the head of a file the partial checksum reads.
	DefaultSampleBytes = 8 * 1024
	// DefaultBufferBytes is the chunk size used when streaming a whole file.
	DefaultBufferBytes = 8 * 1024
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// PartialChecksum is the CRC32C of the first sampleBytes of a file. Short files are
// zero padded so the cost never depends on file size.
func PartialChecksum(fs afero.Fs, path string, sampleBytes int) (uint32, error) {
	if sampleBytes <= 0 {
		sampleBytes = DefaultSampleBytes
	}

	var f, err = fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("Checksum error opening file: %s, err: %w", path, err)
	}
	defer f.Close()

	var buf = make([]byte, sampleBytes)
	if _, err = io.ReadFull(f, buf); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("Checksum error reading file: %s, err: %w", path, err)
	}

	return crc32.Checksum(buf, castagnoli), nil
}

// FullChecksum streams the whole file through CRC32C in bufferSize chunks, checking
// ctx between chunks.
func FullChecksum(ctx context.Context, fs afero.Fs, path string, bufferSize int) (uint32, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferBytes
	}

	var f, err = fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("Checksum error opening file: %s, err: %w", path, err)
	}
	defer f.Close()

	var sum = crc32.New(castagnoli)
	var buf = make([]byte, bufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var n, err = f.Read(buf)
		if n > 0 {
			_, _ = sum.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("Checksum error reading file: %s, err: %w", path, err)
		}
	}

	return sum.Sum32(), nil
}

// SameContents compares two files byte for byte.
func SameContents(ctx context.Context, fs afero.Fs, one, two string, bufferSize int) (bool, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferBytes
	}

	var a, err = fs.Open(one)
	if err != nil {
		return false, fmt.Errorf("Checksum error opening file: %s, err: %w", one, err)
	}
	defer a.Close()

	b, err := fs.Open(two)
	if err != nil {
		return false, fmt.Errorf("Checksum error opening file: %s, err: %w", two, err)
	}
	defer b.Close()

	var bufA, bufB = make([]byte, bufferSize), make([]byte, bufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		var na, errA = io.ReadFull(a, bufA)
		var nb, errB = io.ReadFull(b, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		var doneA = errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		var doneB = errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		switch {
		case errA != nil && !doneA:
			return false, fmt.Errorf("Checksum error reading file: %s, err: %w", one, errA)
		case errB != nil && !doneB:
			return false, fmt.Errorf("Checksum error reading file: %s, err: %w", two, errB)
		case doneA || doneB:
			return doneA && doneB, nil
		}
	}
}
