// Package walk turns the included roots into a flat, deduplicated object list.
package walk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/kmulvey/indexdup/internal/app/indexdup/pool"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrRootInaccessible is returned when an included root cannot be read at all.
var ErrRootInaccessible = errors.New("root path is not accessible")

// Config selects what gets walked. Extensions are compared lowercased without the dot.
type Config struct {
	IncludedPaths      []string
	ExcludedPaths      []string
	IncludedExtensions []string
	ExcludedExtensions []string
}

// Entry is a path found by Walk, before it is stat'ed into an IndexedObject.
type Entry struct {
	Path   string
	IsDir  bool
	IsRoot bool
}

// Walker lists and indexes files on an afero filesystem.
type Walker struct {
	fs        afero.Fs
	roots     []string
	excluded  map[string]struct{}
	skipExts  map[string]struct{}
	keepExts  map[string]struct{}
	rootpaths map[string]struct{}
}

// NewWalker normalizes the config.
func NewWalker(fs afero.Fs, config Config) *Walker {
	var w = &Walker{
		fs:        fs,
		excluded:  cleanSet(config.ExcludedPaths),
		skipExts:  extSet(config.ExcludedExtensions),
		keepExts:  extSet(config.IncludedExtensions),
		rootpaths: cleanSet(config.IncludedPaths),
	}
	for _, root := range config.IncludedPaths {
		w.roots = append(w.roots, filepath.Clean(root))
	}
	return w
}

// Walk visits every root, calling onEnter for each directory entered. Unreadable
// entries are reported through warn; an unreadable root is fatal.
func (w *Walker) Walk(ctx context.Context, onEnter func(dir string), warn types.WarnFunc) ([]Entry, error) {
	var seen = make(map[string]struct{})
	var entries []Entry

	for _, root := range w.roots {
		if _, excluded := w.excluded[root]; excluded {
			continue
		}
		if _, err := w.fs.Stat(root); err != nil {
			return nil, fmt.Errorf("%w: %s, err: %s", ErrRootInaccessible, root, err)
		}

		var err = afero.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				warn(types.NewWarning(path, err))
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			path = filepath.Clean(path)
			if _, excluded := w.excluded[path]; excluded {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.IsDir() && !w.keepExtension(path) {
				return nil
			}

			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			if info.IsDir() {
				onEnter(path)
			}
			var _, isRoot = w.rootpaths[path]
			entries = append(entries, Entry{Path: path, IsDir: info.IsDir(), IsRoot: isRoot})
			return nil
		})
		if errors.Is(err, filepath.SkipDir) {
			return nil, fmt.Errorf("%w: %s", ErrRootInaccessible, root)
		}
		if err != nil {
			return nil, err
		}
	}

	// a root nested inside another walked root keeps its parent
	for i, e := range entries {
		var parent = filepath.Dir(e.Path)
		if _, walked := seen[parent]; e.IsRoot && walked && parent != e.Path {
			entries[i].IsRoot = false
		}
	}

	log.WithFields(log.Fields{"roots": len(w.roots), "entries": len(entries)}).Debug("walk finished")
	return entries, nil
}

// Index stats every entry into an IndexedObject using at most maxThreads workers.
// Entries that vanished or cannot be stat'ed become warnings.
func (w *Walker) Index(ctx context.Context, maxThreads int, entries []Entry, onIndexed func(progress float64, obj types.IndexedObject), warn types.WarnFunc) ([]types.IndexedObject, error) {
	var done atomic.Int64
	var total = float64(len(entries))

	var results, err = pool.Map(ctx, maxThreads, entries, func(ctx context.Context, e Entry) (*types.IndexedObject, error) {
		var obj, err = w.stat(e)
		var progress = float64(done.Add(1)) / total
		if err != nil {
			warn(types.NewWarning(e.Path, err))
			return nil, nil
		}
		onIndexed(progress, *obj)
		return obj, nil
	})
	if err != nil {
		return nil, err
	}

	var objects = make([]types.IndexedObject, 0, len(results))
	for _, obj := range results {
		if obj != nil {
			objects = append(objects, *obj)
		}
	}
	types.SortByPath(objects)
	return objects, nil
}

func (w *Walker) stat(e Entry) (*types.IndexedObject, error) {
	var info, err = w.fs.Stat(e.Path)
	if err != nil {
		return nil, fmt.Errorf("Walker error stating file: %s, err: %w", e.Path, err)
	}

	var obj = &types.IndexedObject{
		Path:     e.Path,
		Category: Categorize(e.Path, info.IsDir()),
		Created:  birthTime(info),
		Modified: info.ModTime(),
	}
	if !e.IsRoot {
		obj.ParentPath = filepath.Dir(e.Path)
	}
	if !info.IsDir() {
		obj.Size = info.Size()
	}
	return obj, nil
}

func (w *Walker) keepExtension(path string) bool {
	var ext = Extension(path)
	if _, skip := w.skipExts[ext]; skip {
		return false
	}
	if len(w.keepExts) == 0 {
		return true
	}
	var _, keep = w.keepExts[ext]
	return keep
}

func cleanSet(paths []string) map[string]struct{} {
	var s = make(map[string]struct{}, len(paths))
	for _, p := range paths {
		s[filepath.Clean(p)] = struct{}{}
	}
	return s
}

func extSet(exts []string) map[string]struct{} {
	var s = make(map[string]struct{}, len(exts))
	for _, e := range exts {
		s[Extension("x."+e)] = struct{}{}
	}
	return s
}
