package similar

import (
	"context"
	"errors"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrames struct {
	frames map[string][]*fingerprint.Luma
}

func (f fakeFrames) Frames(ctx context.Context, path string, fps float64) ([]*fingerprint.Luma, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var frames, ok = f.frames[path]
	if !ok {
		return nil, errors.New("unsupported codec")
	}
	return frames, nil
}

func frames(seeds ...int64) []*fingerprint.Luma {
	var out []*fingerprint.Luma
	for _, seed := range seeds {
		out = append(out, fingerprint.LumaFromImage(wavesImage(FrameSize, FrameSize, seed)))
	}
	return out
}

func video(path string) types.IndexedObject {
	return types.IndexedObject{Path: path, ParentPath: "/v", Size: 1, Category: types.Video}
}

func TestGroupVideos(t *testing.T) {
	t.Parallel()

	var source = fakeFrames{frames: map[string][]*fingerprint.Luma{
		"/v/full.mp4":    frames(1, 2, 3, 4, 5, 6),
		"/v/trimmed.mp4": frames(2, 3, 4, 5),
		"/v/other.mp4":   frames(20, 21, 22, 23, 24),
		"/v/partial.mp4": frames(1, 30, 31, 32, 33, 34, 35, 36),
		"/v/empty.mp4":   nil,
	}}
	var objects = []types.IndexedObject{
		video("/v/full.mp4"), video("/v/trimmed.mp4"), video("/v/other.mp4"),
		video("/v/partial.mp4"), video("/v/empty.mp4"), video("/v/broken.mp4"),
		{Path: "/v/a.png", Category: types.Image},
	}

	var w = new(warnings)
	var g = NewVideoGrouper(source, VideoConfig{MinHashSimilarity: 0.8, MinFrameSimilarity: 0.8, FPS: 1, MaxThreads: 2}, nil)
	var groups, err = g.Group(context.Background(), objects, nil, w.add)
	assert.NoError(t, err)

	// partial shares one frame with full, which is below the frame fraction either way
	assert.Equal(t, [][]string{{"/v/full.mp4", "/v/trimmed.mp4"}}, memberPaths(groups))

	var warned []string
	for _, warning := range w.all {
		warned = append(warned, warning.Path)
	}
	assert.ElementsMatch(t, []string{"/v/empty.mp4", "/v/broken.mp4"}, warned)
}

func TestGroupVideosFrameFraction(t *testing.T) {
	t.Parallel()

	var source = fakeFrames{frames: map[string][]*fingerprint.Luma{
		"/v/a.mp4": frames(1, 2, 3, 4),
		"/v/b.mp4": frames(1, 2, 40, 41),
	}}
	var objects = []types.IndexedObject{video("/v/a.mp4"), video("/v/b.mp4")}

	var loose = NewVideoGrouper(source, VideoConfig{MinHashSimilarity: 0.8, MinFrameSimilarity: 0.5, FPS: 1}, nil)
	var groups, err = loose.Group(context.Background(), objects, nil, new(warnings).add)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(groups))

	var strict = NewVideoGrouper(source, VideoConfig{MinHashSimilarity: 0.8, MinFrameSimilarity: 0.75, FPS: 1}, nil)
	groups, err = strict.Group(context.Background(), objects, nil, new(warnings).add)
	assert.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupVideosDihedral(t *testing.T) {
	t.Parallel()

	var rotated []*fingerprint.Luma
	for _, seed := range []int64{1, 2, 3, 4} {
		rotated = append(rotated, fingerprint.LumaFromImage(imaging.Rotate90(wavesImage(FrameSize, FrameSize, seed))))
	}
	var source = fakeFrames{frames: map[string][]*fingerprint.Luma{
		"/v/a.mp4":       frames(1, 2, 3, 4),
		"/v/rotated.mp4": rotated,
		"/v/other.mp4":   frames(20, 21, 22, 23),
	}}
	var objects = []types.IndexedObject{video("/v/a.mp4"), video("/v/rotated.mp4"), video("/v/other.mp4")}

	var g = NewVideoGrouper(source, VideoConfig{MinHashSimilarity: 0.8, MinFrameSimilarity: 0.8, FPS: 1, Dihedral: true, MaxThreads: 2}, nil)
	var groups, err = g.Group(context.Background(), objects, nil, new(warnings).add)
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"/v/a.mp4", "/v/rotated.mp4"}}, memberPaths(groups))

	hashes, err := g.describe(context.Background(), video("/v/a.mp4"), new(warnings).add)
	require.NoError(t, err)
	require.Equal(t, 4, len(hashes))
	assert.Equal(t, dihedralVariants, len(hashes[0]))
}

func TestGroupVideosWithoutFrames(t *testing.T) {
	t.Parallel()

	var source = fakeFrames{frames: map[string][]*fingerprint.Luma{
		"/v/a.mp4": frames(1, 2),
		"/v/b.mp4": frames(1, 2),
	}}
	var cache = NewCache[[][]fingerprint.Hash256](nil, nil)
	// a stub descriptor with no frames and no error
	var _, err = cache.Get("/v/stub.mp4", func() ([][]fingerprint.Hash256, error) { return [][]fingerprint.Hash256{}, nil })
	require.NoError(t, err)

	var objects = []types.IndexedObject{video("/v/a.mp4"), video("/v/b.mp4"), video("/v/stub.mp4")}
	var g = NewVideoGrouper(source, VideoConfig{MinHashSimilarity: 0.8, MinFrameSimilarity: 0.8, FPS: 1}, cache)
	groups, err := g.Group(context.Background(), objects, nil, new(warnings).add)
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"/v/a.mp4", "/v/b.mp4"}}, memberPaths(groups))
}

func TestVideoDescribePrunesRepeats(t *testing.T) {
	t.Parallel()

	var source = fakeFrames{frames: map[string][]*fingerprint.Luma{
		"/v/still.mp4": frames(5, 5, 5, 6, 6, 5),
	}}
	var g = NewVideoGrouper(source, VideoConfig{MinHashSimilarity: 0.8, MinFrameSimilarity: 0.8, FPS: 1}, nil)

	var hashes, err = g.describe(context.Background(), video("/v/still.mp4"), new(warnings).add)
	require.NoError(t, err)
	assert.Equal(t, 3, len(hashes))
}

func TestGroupVideosCancelled(t *testing.T) {
	t.Parallel()

	var source = fakeFrames{frames: map[string][]*fingerprint.Luma{"/v/a.mp4": frames(1)}}
	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var groups, err = NewVideoGrouper(source, VideoConfig{FPS: 1}, nil).Group(ctx, []types.IndexedObject{video("/v/a.mp4")}, nil, new(warnings).add)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, groups)
}

func TestSplitFrames(t *testing.T) {
	t.Parallel()

	var raw = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	var out = SplitFrames(raw, 2, 2)
	require.Equal(t, 2, len(out))
	assert.Equal(t, []float64{5, 6, 7, 8}, out[1].Pix)
	assert.Nil(t, SplitFrames(raw, 0, 2))
}

func TestFFmpegFramesMissingBinary(t *testing.T) {
	t.Parallel()

	var _, err = FFmpegFrames{Binary: "/nonexistent/ffmpeg"}.Frames(context.Background(), "/v/a.mp4", 1)
	assert.Error(t, err)
}

func TestUnionFind(t *testing.T) {
	t.Parallel()

	var uf = newUnionFind(6)
	uf.union(4, 1)
	uf.union(1, 3)
	uf.union(5, 2)
	assert.Equal(t, [][]int{{1, 3, 4}, {2, 5}}, uf.components(2))
	assert.Equal(t, 3, len(uf.components(1)))
	assert.Equal(t, uf.find(3), uf.find(4))
	assert.NotEqual(t, uf.find(0), uf.find(1))
}
