package fingerprint

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const (
	// HashBits is the width of every perceptual fingerprint.
	HashBits = 256
	// hashSlots is the number of 16 bit words backing a Hash256.
	hashSlots = HashBits / 16
)

// ErrHashFormat is returned when a hex string cannot be parsed into a Hash256.
var ErrHashFormat = errors.New("hash must be 64 hex characters")

// Hash256 is a 256 bit fingerprint. Bit k lives in word k/16 at position k%16.
type Hash256 [hashSlots]uint16

// Distance is the hamming distance between two fingerprints.
func (h Hash256) Distance(other Hash256) int {
	var d int
	for i := range h {
		d += bits.OnesCount16(h[i] ^ other[i])
	}
	return d
}

// Similarity maps the distance onto [0,1], 1 being identical.
func (h Hash256) Similarity(other Hash256) float64 {
	return 1 - float64(h.Distance(other))/HashBits
}

// Bit reports whether bit k is set.
func (h Hash256) Bit(k int) bool {
	return h[k/16]&(1<<(k%16)) != 0
}

// SetBit sets bit k.
func (h *Hash256) SetBit(k int) {
	h[k/16] |= 1 << (k % 16)
}

// FlipBit toggles bit k.
func (h *Hash256) FlipBit(k int) {
	h[k/16] ^= 1 << (k % 16)
}

// PopCount is the number of set bits.
func (h Hash256) PopCount() int {
	var n int
	for _, w := range h {
		n += bits.OnesCount16(w)
	}
	return n
}

// Block returns bits [index*width, (index+1)*width) as an integer. width must be 8, 16, 32 or 64.
func (h Hash256) Block(index, width int) uint64 {
	if width == 8 {
		var w = h[index/2]
		if index%2 == 1 {
			w >>= 8
		}
		return uint64(w & 0xff)
	}

	var words = width / 16
	var block uint64
	for j := 0; j < words; j++ {
		block |= uint64(h[index*words+j]) << (16 * j)
	}
	return block
}

// String renders the hash as 64 hex characters, most significant word first.
func (h Hash256) String() string {
	var sb strings.Builder
	sb.Grow(HashBits / 4)
	for i := hashSlots - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%04x", h[i])
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash256) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash256) UnmarshalText(text []byte) error {
	var parsed, err = ParseHash256(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash256 is the inverse of Hash256.String.
func ParseHash256(s string) (Hash256, error) {
	var h Hash256
	if len(s) != HashBits/4 {
		return h, fmt.Errorf("%w: got %d", ErrHashFormat, len(s))
	}
	for i := 0; i < hashSlots; i++ {
		var start = i * 4
		var word, err = strconv.ParseUint(s[start:start+4], 16, 16)
		if err != nil {
			return h, fmt.Errorf("%w: %s", ErrHashFormat, err)
		}
		h[hashSlots-1-i] = uint16(word)
	}
	return h, nil
}
