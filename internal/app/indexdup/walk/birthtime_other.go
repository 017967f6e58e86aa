//go:build !darwin

package walk

import (
	"os"
	"time"
)

// birthTime falls back to the modification time where the platform stat has no birth time.
func birthTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
