// Package logger writes and reads the JSON lines report of an indexdup run.
package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/sirupsen/logrus"
)

// Kind names what a report record describes.
type Kind string

const (
	KindRun                  Kind = "run"
	KindDuplicateHashes      Kind = "duplicate_hashes"
	KindDuplicateFileNames   Kind = "duplicate_file_names"
	KindDuplicateFolderNames Kind = "duplicate_folder_names"
	KindEmptyFiles           Kind = "empty_files"
	KindEmptyFolders         Kind = "empty_folders"
	KindSimilarImages        Kind = "similar_images"
	KindSimilarVideos        Kind = "similar_videos"
	KindWarning              Kind = "warning"
)

// Record is one line of the report.
type Record struct {
	Kind           Kind      `json:"kind"`
	Time           time.Time `json:"time"`
	Run            string    `json:"run,omitempty"`
	Key            string    `json:"key,omitempty"`
	TotalSizeBytes int64     `json:"totalSizeBytes,omitempty"`
	Paths          []string  `json:"paths,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// ReportFormatter renders an entry's fields as a single JSON object.
type ReportFormatter struct{}

func (f *ReportFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var data = make(logrus.Fields, len(entry.Data)+1)
	for k, v := range entry.Data {
		data[k] = v
	}
	data["time"] = entry.Time.UTC().Format(time.RFC3339Nano)

	var js, err = json.Marshal(data)
	if err != nil {
		var dataStr strings.Builder
		dataStr.WriteString("[")
		for k, v := range entry.Data {
			dataStr.WriteString(fmt.Sprintf("key: %s, val: %v; ", k, v))
		}
		dataStr.WriteString("]")
		return nil, fmt.Errorf("ReportLogger could not marshal json data: %s, err: %w", dataStr.String(), err)
	}
	return append(js, '\n'), nil
}

// ReportLogger appends records to a report file.
type ReportLogger struct {
	file   *os.File
	logger *logrus.Logger
	run    string
}

// NewReportLogger truncates filename and writes the run header.
func NewReportLogger(filename, runID string) (*ReportLogger, error) {
	var file, err = os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("ReportLogger could not open file: %s, err: %w", filename, err)
	}

	var reportLogger = logrus.New()
	reportLogger.SetFormatter(new(ReportFormatter))
	reportLogger.SetOutput(file)

	var r = &ReportLogger{file: file, logger: reportLogger, run: runID}
	r.entry(KindRun).Info(string(KindRun))
	return r, nil
}

func (r *ReportLogger) entry(kind Kind) *logrus.Entry {
	return r.logger.WithFields(logrus.Fields{"kind": kind, "run": r.run})
}

func (r *ReportLogger) logObjects(kind Kind, key string, objects []types.IndexedObject) {
	var paths = make([]string, len(objects))
	for i, o := range objects {
		paths[i] = o.Path
	}
	r.entry(kind).WithFields(logrus.Fields{
		"key":            key,
		"totalSizeBytes": types.TotalSize(objects),
		"paths":          paths,
	}).Info(string(kind))
}

// LogGroups writes one record per group.
func LogGroups[G types.Group[G]](r *ReportLogger, kind Kind, groups []G) {
	for _, g := range groups {
		r.logObjects(kind, g.Key(), g.Objects())
	}
}

// LogObjects writes a single record holding every object, used for empty files and folders.
func (r *ReportLogger) LogObjects(kind Kind, objects []types.IndexedObject) {
	if len(objects) == 0 {
		return
	}
	r.logObjects(kind, "", objects)
}

// LogWarnings writes one record per warning.
func (r *ReportLogger) LogWarnings(warnings []types.Warning) {
	for _, w := range warnings {
		r.entry(KindWarning).WithFields(logrus.Fields{
			"paths":   []string{w.Path},
			"message": w.Message,
		}).Warn(string(KindWarning))
	}
}

// Close closes the report file.
func (r *ReportLogger) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("ReportLogger could not close file: %s, err: %w", r.file.Name(), err)
	}
	return nil
}

// ReadReportFile parses every record of a report.
func ReadReportFile(filename string) ([]Record, error) {
	var file, err = os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("ReportLogger could not open file: %s, err: %w", filename, err)
	}
	defer file.Close()

	var records []Record
	var scanner = bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("ReportLogger could not decode line %d of file: %s, err: %w", line, filename, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ReportLogger could not read file: %s, err: %w", filename, err)
	}

	return records, nil
}
