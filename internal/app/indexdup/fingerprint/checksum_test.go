package fingerprint

import (
	"bytes"
	"context"
	"hash/crc32"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestPartialChecksumPadsShortFiles(t *testing.T) {
	t.Parallel()

	var fs = afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fs, "/short", []byte("hello"), 0644))

	var sum, err = PartialChecksum(fs, "/short", 32)
	assert.NoError(t, err)

	var padded = make([]byte, 32)
	copy(padded, "hello")
	assert.Equal(t, crc32.Checksum(padded, crc32.MakeTable(crc32.Castagnoli)), sum)
}

func TestPartialChecksumIgnoresTail(t *testing.T) {
	t.Parallel()

	var fs = afero.NewMemMapFs()
	var head = bytes.Repeat([]byte{'a'}, 64)
	assert.NoError(t, afero.WriteFile(fs, "/one", append(append([]byte{}, head...), 'x'), 0644))
	assert.NoError(t, afero.WriteFile(fs, "/two", append(append([]byte{}, head...), 'y'), 0644))

	var one, err = PartialChecksum(fs, "/one", 64)
	assert.NoError(t, err)
	two, err := PartialChecksum(fs, "/two", 64)
	assert.NoError(t, err)
	assert.Equal(t, one, two)

	fullOne, err := FullChecksum(context.Background(), fs, "/one", 7)
	assert.NoError(t, err)
	fullTwo, err := FullChecksum(context.Background(), fs, "/two", 7)
	assert.NoError(t, err)
	assert.NotEqual(t, fullOne, fullTwo)
}

func TestFullChecksumMatchesOneShot(t *testing.T) {
	t.Parallel()

	var fs = afero.NewMemMapFs()
	var data = bytes.Repeat([]byte("indexdup"), 5000)
	assert.NoError(t, afero.WriteFile(fs, "/big", data, 0644))

	var expected = crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))
	for _, size := range []int{1, 13, 8192, 1 << 20} {
		var sum, err = FullChecksum(context.Background(), fs, "/big", size)
		assert.NoError(t, err)
		assert.Equal(t, expected, sum, "buffer %d", size)
	}
}

func TestChecksumErrors(t *testing.T) {
	t.Parallel()

	var fs = afero.NewMemMapFs()
	var _, err = PartialChecksum(fs, "/missing", 8)
	assert.Error(t, err)
	_, err = FullChecksum(context.Background(), fs, "/missing", 8)
	assert.Error(t, err)

	assert.NoError(t, afero.WriteFile(fs, "/file", []byte("abc"), 0644))
	var ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = FullChecksum(ctx, fs, "/file", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSameContents(t *testing.T) {
	t.Parallel()

	var fs = afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fs, "/a", []byte("same bytes here"), 0644))
	assert.NoError(t, afero.WriteFile(fs, "/b", []byte("same bytes here"), 0644))
	assert.NoError(t, afero.WriteFile(fs, "/c", []byte("same bytes HERE"), 0644))
	assert.NoError(t, afero.WriteFile(fs, "/d", []byte("same bytes here!"), 0644))

	var ctx = context.Background()
	var same, err = SameContents(ctx, fs, "/a", "/b", 4)
	assert.NoError(t, err)
	assert.True(t, same)

	same, err = SameContents(ctx, fs, "/a", "/c", 4)
	assert.NoError(t, err)
	assert.False(t, same)

	same, err = SameContents(ctx, fs, "/a", "/d", 5)
	assert.NoError(t, err)
	assert.False(t, same)

	same, err = SameContents(ctx, fs, "/a", "/d", 64)
	assert.NoError(t, err)
	assert.False(t, same)
}
