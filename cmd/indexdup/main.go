package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kmulvey/indexdup/internal/app/indexdup"
	"github.com/kmulvey/indexdup/internal/app/indexdup/similar"
	"github.com/kmulvey/indexdup/pkg/indexdup/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.szostok.io/version"
	"go.szostok.io/version/printer"
)

func main() {
	var start = time.Now()
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var gracefulShutdown = make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, os.Interrupt, syscall.SIGTERM)

	// get user opts
	var config = indexdup.DefaultConfig()
	var configFile string
	var dirs, excluded, includeExts, excludeExts string
	var outputFile string
	var exportFile string
	var ffmpeg string
	var metricsAddr string
	var skip string
	var verbose bool
	var help bool
	var v bool
	flag.StringVar(&configFile, "config", "", "toml preset, flags given on the command line override it")
	flag.StringVar(&dirs, "dir", "", "comma separated directories or files to index (abs path)")
	flag.StringVar(&excluded, "exclude", "", "comma separated paths to skip, including everything below them")
	flag.StringVar(&includeExts, "include-ext", "", "comma separated extensions, only these are indexed")
	flag.StringVar(&excludeExts, "exclude-ext", "", "comma separated extensions to skip")
	flag.IntVar(&config.MaxThreads, "threads", config.MaxThreads, "max number of files processed at once")
	flag.Float64Var(&config.ImageMinSimilarity, "image-similarity", config.ImageMinSimilarity, "min similarity (0,1] for two images to be grouped")
	flag.BoolVar(&config.ImproveAccuracy, "improve-accuracy", config.ImproveAccuracy, "also compare luminance histograms and difference hashes before grouping images")
	flag.BoolVar(&config.Dihedral, "dihedral", config.Dihedral, "also group images and videos that are rotated or flipped copies")
	flag.Float64Var(&config.ImageMinQuality, "image-quality", config.ImageMinQuality, "skip images whose fingerprint quality [0,1] is lower")
	flag.Float64Var(&config.VideoMinHashSimilarity, "video-hash-similarity", config.VideoMinHashSimilarity, "min similarity (0,1] for two video frames to match")
	flag.Float64Var(&config.VideoMinFrameSimilarity, "video-frame-similarity", config.VideoMinFrameSimilarity, "min fraction of matching frames for two videos to be grouped")
	flag.Float64Var(&config.VideoFPS, "fps", config.VideoFPS, "frames per second sampled from videos")
	flag.BoolVar(&config.VerifyBytes, "verify-bytes", config.VerifyBytes, "compare duplicate candidates byte for byte")
	flag.IntVar(&config.MIHBlocks, "blocks", config.MIHBlocks, "hamming index blocks: 4, 8, 16 or 32")
	flag.StringVar(&skip, "skip", "", "comma separated analyzers to disable: hashes,file-names,folder-names,empty-files,empty-folders,images,videos")
	flag.StringVar(&outputFile, "output-file", "report.log", "json lines report of every group found")
	flag.StringVar(&exportFile, "export-file", "", "if set, write the full result as json to this file")
	flag.StringVar(&ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used to sample videos")
	flag.StringVar(&metricsAddr, "metrics-addr", ":5000", "address of the prometheus /metrics endpoint")
	flag.BoolVar(&verbose, "verbose", false, "debug logging")
	flag.BoolVar(&help, "help", false, "print help")
	flag.BoolVar(&v, "version", false, "print version")
	flag.BoolVar(&v, "v", false, "print version")
	flag.Parse()

	if help {
		flag.PrintDefaults()
		os.Exit(0)
	}
	if v {
		var verPrinter = printer.New()
		var info = version.Get()
		if err := verPrinter.PrintInfo(os.Stdout, info); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if configFile != "" {
		var preset, err = indexdup.LoadConfig(configFile)
		if err != nil && !errors.Is(err, indexdup.ErrInvalidConfig) {
			handleErr("LoadConfig", err)
		}
		config = overrideSetFlags(preset, config)
	}
	if dirs != "" {
		config.IncludedPaths = splitList(dirs)
	}
	if excluded != "" {
		config.ExcludedPaths = splitList(excluded)
	}
	if includeExts != "" {
		config.IncludedExtensions = splitList(includeExts)
	}
	if excludeExts != "" {
		config.ExcludedExtensions = splitList(excludeExts)
	}
	handleErr("skip", disableAnalyzers(&config.Analyzers, skip))
	if len(config.IncludedPaths) == 0 {
		log.Fatal("directory not provided")
	}

	// prom
	go func() {
		var mux = http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s := &http.Server{
			Addr:           metricsAddr,
			Handler:        mux,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		log.Fatal(s.ListenAndServe())
	}()

	// start er up
	var pipeline, err = indexdup.NewPipeline("indexdup", config, afero.NewOsFs(), similar.FFmpegFrames{Binary: ffmpeg})
	handleErr("NewPipeline", err)

	go func() {
		select {
		case <-gracefulShutdown:
			log.Info("Shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
	go logProgress(ctx, pipeline)

	log.Info("Started, go to grafana to monitor")
	result, err := pipeline.Run(ctx)
	if errors.Is(err, context.Canceled) {
		pipeline.Shutdown()
		log.Info("Cancelled after: ", time.Since(start))
		return
	}
	handleErr("Run", err)

	report, err := logger.NewReportLogger(outputFile, result.RunID)
	handleErr("NewReportLogger", err)
	writeReport(report, result)
	handleErr("CloseReport", report.Close())

	if exportFile != "" {
		var f, err = os.Create(exportFile)
		handleErr("CreateExport", err)
		handleErr("Export", result.Export(f))
		handleErr("CloseExport", f.Close())
	}

	printSummary(result)

	// shut everything down
	cancel()
	pipeline.Shutdown()

	log.Info("Total time taken: ", time.Since(start))
}

// overrideSetFlags starts from preset and copies over every flag the user actually passed.
func overrideSetFlags(preset, flags indexdup.Config) indexdup.Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threads":
			preset.MaxThreads = flags.MaxThreads
		case "image-similarity":
			preset.ImageMinSimilarity = flags.ImageMinSimilarity
		case "improve-accuracy":
			preset.ImproveAccuracy = flags.ImproveAccuracy
		case "dihedral":
			preset.Dihedral = flags.Dihedral
		case "image-quality":
			preset.ImageMinQuality = flags.ImageMinQuality
		case "video-hash-similarity":
			preset.VideoMinHashSimilarity = flags.VideoMinHashSimilarity
		case "video-frame-similarity":
			preset.VideoMinFrameSimilarity = flags.VideoMinFrameSimilarity
		case "fps":
			preset.VideoFPS = flags.VideoFPS
		case "verify-bytes":
			preset.VerifyBytes = flags.VerifyBytes
		case "blocks":
			preset.MIHBlocks = flags.MIHBlocks
		}
	})
	return preset
}

func disableAnalyzers(a *indexdup.Analyzers, skip string) error {
	for _, name := range splitList(skip) {
		switch name {
		case "hashes":
			a.DuplicateHashes = false
		case "file-names":
			a.DuplicateFileNames = false
		case "folder-names":
			a.DuplicateFolderNames = false
		case "empty-files":
			a.EmptyFiles = false
		case "empty-folders":
			a.EmptyFolders = false
		case "images":
			a.SimilarImages = false
		case "videos":
			a.SimilarVideos = false
		default:
			return fmt.Errorf("unknown analyzer: %s", name)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logProgress logs the current stage every few seconds until the run ends.
func logProgress(ctx context.Context, p *indexdup.Pipeline) {
	var ticker = time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var stage = p.Stage()
			log.Info(indexdup.Describe(stage))
			if indexdup.Terminal(stage) {
				return
			}
		}
	}
}

func writeReport(report *logger.ReportLogger, result *indexdup.Result) {
	logger.LogGroups(report, logger.KindDuplicateHashes, result.DuplicateHashes)
	logger.LogGroups(report, logger.KindDuplicateFileNames, result.DuplicateFileNames)
	logger.LogGroups(report, logger.KindDuplicateFolderNames, result.DuplicateFolderNames)
	report.LogObjects(logger.KindEmptyFiles, result.EmptyFiles)
	report.LogObjects(logger.KindEmptyFolders, result.EmptyFolders)
	logger.LogGroups(report, logger.KindSimilarImages, result.SimilarImages)
	logger.LogGroups(report, logger.KindSimilarVideos, result.SimilarVideos)
	report.LogWarnings(result.Warnings)
}

func printSummary(result *indexdup.Result) {
	fmt.Printf("indexed %s objects\n", humanize.Comma(int64(len(result.Objects))))
	fmt.Printf("duplicate hashes:       %d groups, %s reclaimable\n", len(result.DuplicateHashes), humanize.Bytes(uint64(result.ReclaimableBytes())))
	fmt.Printf("duplicate file names:   %d groups\n", len(result.DuplicateFileNames))
	fmt.Printf("duplicate folder names: %d groups\n", len(result.DuplicateFolderNames))
	fmt.Printf("empty files:            %d\n", len(result.EmptyFiles))
	fmt.Printf("empty folders:          %d\n", len(result.EmptyFolders))
	fmt.Printf("similar images:         %d groups\n", len(result.SimilarImages))
	fmt.Printf("similar videos:         %d groups\n", len(result.SimilarVideos))
	fmt.Printf("warnings:               %d\n", len(result.Warnings))
}

// handleErr is a convience func to log and quit errors
func handleErr(prefix string, err error) {
	if err != nil {
		log.Fatal(fmt.Errorf("%s: %w", prefix, err))
	}
}
