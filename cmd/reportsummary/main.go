package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/kmulvey/indexdup/pkg/indexdup/logger"
	"github.com/kmulvey/path"
	log "github.com/sirupsen/logrus"
	"go.szostok.io/version"
	"go.szostok.io/version/printer"
)

type totals struct {
	records int
	paths   int
	bytes   int64
	missing int
}

func main() {
	var reportFiles path.Path
	var checkExists bool
	var v bool
	var help bool
	flag.Var(&reportFiles, "report-files", "report file, or a dir of them, written by indexdup -output-file")
	flag.BoolVar(&checkExists, "check-exists", false, "count paths that no longer exist on disk")
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

	var files = listReports(reportFiles)
	if len(files) == 0 {
		log.Fatal("no report files found in: ", reportFiles.Input)
	}

	for _, reportFile := range files {
		var records, err = logger.ReadReportFile(reportFile)
		if err != nil {
			log.Fatalf("error reading file: %s, err: %s", reportFile, err)
		}

		var run, byKind = summarize(records, checkExists)
		fmt.Printf("%s (run %s)\n", reportFile, run)
		var kinds = make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			var t = byKind[logger.Kind(k)]
			fmt.Printf("\t%-24s %6d records %8s paths %10s", k, t.records, humanize.Comma(int64(t.paths)), humanize.Bytes(uint64(t.bytes)))
			if checkExists {
				fmt.Printf(" %6d missing", t.missing)
			}
			fmt.Println()
		}
	}
}

// listReports returns the regular files named by the -report-files flag.
func listReports(reportFiles path.Path) []string {
	return path.OnlyNames(path.OnlyFiles(reportFiles.Get()))
}

// summarize totals records per kind and returns the run id from the header.
func summarize(records []logger.Record, checkExists bool) (string, map[logger.Kind]*totals) {
	var run string
	var byKind = make(map[logger.Kind]*totals)
	for _, r := range records {
		if r.Kind == logger.KindRun {
			run = r.Run
			continue
		}
		var t, ok = byKind[r.Kind]
		if !ok {
			t = new(totals)
			byKind[r.Kind] = t
		}
		t.records++
		t.paths += len(r.Paths)
		t.bytes += r.TotalSizeBytes
		if checkExists {
			for _, p := range r.Paths {
				if !fileExists(p) {
					t.missing++
				}
			}
		}
	}
	return run, byKind
}

// fileExists returns true if the file exists
func fileExists(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
