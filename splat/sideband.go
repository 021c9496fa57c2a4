package splat

import (
	"path/filepath"
	"strings"
)

// ThumbnailPaths returns the conventional thumbnail locations for a frame
// file, in preference order: thumbnails/<basename>.jpg then .png, in a
// thumbnails directory beside the frame. Gallery UIs consume these; this
// package only defines the convention.
func ThumbnailPaths(framePath string) []string {
	dir := filepath.Dir(framePath)
	base := strings.TrimSuffix(filepath.Base(framePath), filepath.Ext(framePath))
	return []string{
		filepath.Join(dir, "thumbnails", base+".jpg"),
		filepath.Join(dir, "thumbnails", base+".png"),
	}
}

// ResumeStore persists the last viewed frame index across sessions. Host
// applications implement it and consult it around session start and end;
// playback itself never reads or writes it.
type ResumeStore interface {
	// LastIndex returns the persisted index for a source directory.
	LastIndex(source string) (index int, ok bool)

	// SetLastIndex records the index for a source directory.
	SetLastIndex(source string, index int) error
}
