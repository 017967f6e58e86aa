package similar

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	log "github.com/sirupsen/logrus"
)

// FrameSize is the edge length of frames decoded by FFmpegFrames.
const FrameSize = 128

// FrameSource decodes luminance frames from a video, sampled at fps.
type FrameSource interface {
	Frames(ctx context.Context, path string, fps float64) ([]*fingerprint.Luma, error)
}

// FFmpegFrames runs ffmpeg to decode raw 8 bit gray frames scaled to FrameSize.
type FFmpegFrames struct {
	// Binary defaults to "ffmpeg" on the PATH.
	Binary string
}

// Frames implements FrameSource.
func (f FFmpegFrames) Frames(ctx context.Context, path string, fps float64) ([]*fingerprint.Luma, error) {
	var binary = f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	var cmd = exec.CommandContext(ctx, binary,
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-vf", "fps="+strconv.FormatFloat(fps, 'f', -1, 64)+",scale="+strconv.Itoa(FrameSize)+":"+strconv.Itoa(FrameSize),
		"-pix_fmt", "gray",
		"-f", "rawvideo",
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("FFmpegFrames error decoding file: %s, stderr: %s, err: %w", path, stderr.String(), err)
	}

	var frames = SplitFrames(stdout.Bytes(), FrameSize, FrameSize)
	if len(frames) == 0 {
		return nil, fmt.Errorf("FFmpegFrames error decoding file: %s, err: no frames", path)
	}

	log.WithFields(log.Fields{"path": path, "frames": len(frames)}).Debug("decoded frames")
	return frames, nil
}

// SplitFrames cuts a raw gray stream into width x height frames, dropping a trailing
// partial frame.
func SplitFrames(raw []byte, width, height int) []*fingerprint.Luma {
	var size = width * height
	if size <= 0 {
		return nil
	}

	var frames = make([]*fingerprint.Luma, 0, len(raw)/size)
	for off := 0; off+size <= len(raw); off += size {
		frames = append(frames, fingerprint.LumaFromBytes(width, height, raw[off:off+size]))
	}
	return frames
}
