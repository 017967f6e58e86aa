package types

import (
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
)

// Category is the coarse kind of an indexed object, derived from its extension.
type Category string

const (
	Image    Category = "IMAGE"
	Video    Category = "VIDEO"
	Audio    Category = "AUDIO"
	Document Category = "DOCUMENT"
	Folder   Category = "FOLDER"
	Archive  Category = "ARCHIVE"
	Other    Category = "OTHER"
)

// IndexedObject is one file or folder found by the walker. Its identity is Path.
// ParentPath is empty for walk roots.
type IndexedObject struct {
	Path       string    `json:"path"`
	ParentPath string    `json:"parentPath,omitempty"`
	Size       int64     `json:"size"`
	Category   Category  `json:"category"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}

// Name is the base name of the object.
func (o IndexedObject) Name() string {
	return filepath.Base(o.Path)
}

// IsRoot reports whether the object was one of the included walk roots.
func (o IndexedObject) IsRoot() bool {
	return o.ParentPath == ""
}

// IsFolder is a shortcut for Category == Folder.
func (o IndexedObject) IsFolder() bool {
	return o.Category == Folder
}

// Warning is a recoverable per-item failure. It never stops a stage.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// WarnFunc receives warnings as analyzers produce them.
type WarnFunc func(Warning)

// NewWarning builds a warning from an error.
func NewWarning(path string, err error) Warning {
	var w = Warning{Path: path}
	if err != nil {
		w.Message = err.Error()
	}
	return w
}

// PanicWarning builds a warning for a recovered panic, keeping the stack.
func PanicWarning(path string, recovered any) Warning {
	return Warning{
		Path:    path,
		Message: fmt.Sprintf("panic: %v", recovered),
		Stack:   strings.TrimSpace(string(debug.Stack())),
	}
}

func (w Warning) String() string {
	if w.Message == "" {
		return w.Path
	}
	return w.Path + ": " + w.Message
}
