package indexdup

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	"github.com/kmulvey/indexdup/internal/app/indexdup/mih"
	"github.com/kmulvey/indexdup/internal/app/indexdup/similar"
	"github.com/kmulvey/indexdup/internal/app/indexdup/walk"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Analyzers toggles each analyzer of a run.
type Analyzers struct {
	DuplicateHashes      bool `toml:"duplicate_hashes"`
	DuplicateFileNames   bool `toml:"duplicate_file_names"`
	DuplicateFolderNames bool `toml:"duplicate_folder_names"`
	EmptyFiles           bool `toml:"empty_files"`
	EmptyFolders         bool `toml:"empty_folders"`
	SimilarImages        bool `toml:"similar_images"`
	SimilarVideos        bool `toml:"similar_videos"`
}

// Config is everything a run depends on.
type Config struct {
	IncludedPaths      []string `toml:"included_paths"`
	ExcludedPaths      []string `toml:"excluded_paths"`
	IncludedExtensions []string `toml:"included_extensions"`
	ExcludedExtensions []string `toml:"excluded_extensions"`

	MaxThreads int       `toml:"max_threads"`
	Analyzers  Analyzers `toml:"analyzers"`

	ImageMinSimilarity float64 `toml:"image_min_similarity"`
	ImproveAccuracy    bool    `toml:"improve_accuracy"`
	ImageMinQuality    float64 `toml:"image_min_quality"`
	Dihedral           bool    `toml:"dihedral"`

	VideoMinHashSimilarity  float64 `toml:"video_min_hash_similarity"`
	VideoMinFrameSimilarity float64 `toml:"video_min_frame_similarity"`
	VideoFPS                float64 `toml:"video_fps"`

	SampleBytes int  `toml:"sample_bytes"`
	BufferBytes int  `toml:"buffer_bytes"`
	VerifyBytes bool `toml:"verify_bytes"`
	MIHBlocks   int  `toml:"mih_blocks"`
}

// DefaultConfig enables every analyzer with the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MaxThreads: runtime.NumCPU(),
		Analyzers: Analyzers{
			DuplicateHashes:      true,
			DuplicateFileNames:   true,
			DuplicateFolderNames: true,
			EmptyFiles:           true,
			EmptyFolders:         true,
			SimilarImages:        true,
			SimilarVideos:        true,
		},
		ImageMinSimilarity:      0.8,
		VideoMinHashSimilarity:  0.8,
		VideoMinFrameSimilarity: 0.8,
		VideoFPS:                1,
		SampleBytes:             fingerprint.DefaultSampleBytes,
		BufferBytes:             fingerprint.DefaultBufferBytes,
		MIHBlocks:               mih.DefaultBlocks,
	}
}

// LoadConfig reads a TOML preset on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	var config = DefaultConfig()

	var data, err = os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("Config error reading file: %s, err: %w", path, err)
	}
	if err = toml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("Config error decoding file: %s, err: %w", path, err)
	}

	return config, config.Validate()
}

// Validate reports the first out of range field.
func (c Config) Validate() error {
	if len(c.IncludedPaths) == 0 {
		return fmt.Errorf("%w: at least one included path is required", ErrInvalidConfig)
	}
	if c.MaxThreads < 0 {
		return fmt.Errorf("%w: max threads must not be negative, got %d", ErrInvalidConfig, c.MaxThreads)
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"image min similarity", c.ImageMinSimilarity},
		{"video min hash similarity", c.VideoMinHashSimilarity},
		{"video min frame similarity", c.VideoMinFrameSimilarity},
	} {
		if f.value <= 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be in (0, 1], got %g", ErrInvalidConfig, f.name, f.value)
		}
	}
	if c.ImageMinQuality < 0 || c.ImageMinQuality > 1 {
		return fmt.Errorf("%w: image min quality must be in [0, 1], got %g", ErrInvalidConfig, c.ImageMinQuality)
	}
	if c.VideoFPS <= 0 {
		return fmt.Errorf("%w: video fps must be positive, got %g", ErrInvalidConfig, c.VideoFPS)
	}
	if c.SampleBytes <= 0 || c.BufferBytes <= 0 {
		return fmt.Errorf("%w: sample and buffer bytes must be positive, got %d and %d", ErrInvalidConfig, c.SampleBytes, c.BufferBytes)
	}
	switch c.MIHBlocks {
	case 4, 8, 16, 32:
	default:
		return fmt.Errorf("%w: %w, got %d", ErrInvalidConfig, mih.ErrBlockCount, c.MIHBlocks)
	}

	return nil
}

func (c Config) walkConfig() walk.Config {
	return walk.Config{
		IncludedPaths:      c.IncludedPaths,
		ExcludedPaths:      c.ExcludedPaths,
		IncludedExtensions: c.IncludedExtensions,
		ExcludedExtensions: c.ExcludedExtensions,
	}
}

func (c Config) imageConfig() similar.ImageConfig {
	return similar.ImageConfig{
		MinSimilarity:   c.ImageMinSimilarity,
		ImproveAccuracy: c.ImproveAccuracy,
		MinQuality:      c.ImageMinQuality,
		Dihedral:        c.Dihedral,
		Blocks:          c.MIHBlocks,
		MaxThreads:      c.MaxThreads,
	}
}

func (c Config) videoConfig() similar.VideoConfig {
	return similar.VideoConfig{
		MinHashSimilarity:  c.VideoMinHashSimilarity,
		MinFrameSimilarity: c.VideoMinFrameSimilarity,
		FPS:                c.VideoFPS,
		Dihedral:           c.Dihedral,
		Blocks:             c.MIHBlocks,
		MaxThreads:         c.MaxThreads,
	}
}
