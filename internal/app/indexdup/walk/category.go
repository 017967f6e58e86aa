package walk

import (
	"path/filepath"
	"strings"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
)

var categories = func() map[string]types.Category {
	var table = map[types.Category][]string{
		types.Image: {
			"bmp", "dib", "jpeg", "jpg", "jpe", "jp2", "png", "webp", "avif", "pbm", "pgm", "ppm", "pxm",
			"pnm", "pfm", "sr", "ras", "tiff", "tif", "exr", "hdr", "pic", "3dm", "3ds", "max", "dds", "gif",
			"psd", "xcf", "tga", "thm", "ai", "eps", "ps", "svg", "dwg", "dxf", "gpx", "kml", "kmz",
		},
		types.Video: {
			"3g2", "3gp", "aaf", "asf", "avchd", "avi", "drc", "flv", "m2v", "m4p", "m4v", "mkv", "mng", "mov",
			"mp2", "mp4", "mpe", "mpeg", "mpg", "mpv", "mxf", "nsv", "ogg", "ogv", "ogm", "qt", "rm", "rmvb",
			"roq", "srt", "svi", "vob", "webm", "wmv", "yuv",
		},
		types.Document: {
			"doc", "docx", "ebook", "log", "md", "msg", "odt", "org", "pages", "pdf", "rtf", "rst", "tex",
			"txt", "wpd", "wps",
		},
		types.Audio: {
			"aac", "aiff", "ape", "au", "flac", "gsm", "it", "m3u", "m4a", "mid", "mod", "mp3", "mpa", "pls",
			"ra", "s3m", "sid", "wav", "wma", "xm",
		},
		types.Archive: {
			"7z", "a", "apk", "ar", "bz2", "cab", "cpio", "deb", "dmg", "egg", "gz", "iso", "jar", "lha", "mar",
			"pea", "rar", "rpm", "s7z", "shar", "tar", "tbz2", "tgz", "tlz", "war", "whl", "xpi", "zip", "zipx",
			"xz", "pak",
		},
	}

	var m = make(map[string]types.Category)
	for category, exts := range table {
		for _, ext := range exts {
			m[ext] = category
		}
	}
	return m
}()

// Extension is the lowercased extension of path without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Categorize maps a path to its category by extension.
func Categorize(path string, isDir bool) types.Category {
	if isDir {
		return types.Folder
	}
	if c, ok := categories[Extension(path)]; ok {
		return c
	}
	return types.Other
}
