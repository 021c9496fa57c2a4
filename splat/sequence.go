package splat

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FrameExt is the recognized frame file extension.
const FrameExt = ".ply"

var framePattern = regexp.MustCompile(`^frame_(\d+)$`)

// Sequence is the ordered set of frame files discovered in one directory.
// Indices are dense and 0-based. Names matching frame_<digits> are ordered
// numerically by the digit group and sort before all other names, which
// follow in lexicographic order; the two groups never interleave.
type Sequence struct {
	Dir string

	paths []string
}

// ScanSequence discovers the frame files in dir.
func ScanSequence(dir string) (*Sequence, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &DirectoryNotFoundError{Dir: dir}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrInput, dir, err)
	}

	type frameName struct {
		name    string
		numeric bool
		number  uint64
	}
	names := make([]frameName, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), FrameExt) {
			continue
		}
		fn := frameName{name: e.Name()}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if m := framePattern.FindStringSubmatch(stem); m != nil {
			if n, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				fn.numeric = true
				fn.number = n
			}
		}
		names = append(names, fn)
	}
	if len(names) == 0 {
		return nil, &NoFramesFoundError{Dir: dir, Ext: FrameExt}
	}

	sort.Slice(names, func(i, j int) bool {
		a, b := names[i], names[j]
		if a.numeric != b.numeric {
			return a.numeric
		}
		if a.numeric {
			return a.number < b.number
		}
		return a.name < b.name
	})

	paths := make([]string, len(names))
	for i, fn := range names {
		paths[i] = filepath.Join(dir, fn.name)
	}
	return &Sequence{Dir: dir, paths: paths}, nil
}

// Len returns the number of frames in the sequence.
func (s *Sequence) Len() int { return len(s.paths) }

// Path returns the file path for the given frame index.
func (s *Sequence) Path(index int) (string, error) {
	if index < 0 || index >= len(s.paths) {
		return "", &IndexOutOfRangeError{Index: index, Count: len(s.paths)}
	}
	return s.paths[index], nil
}
