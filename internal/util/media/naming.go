package media

import (
	"path/filepath"
	"strings"
)

// ContainerExt is the extension of every output file; libvpx + libvorbis
// streams are muxed into WebM.
const ContainerExt = ".webm"

// OutputBasename strips the directory and extension from inputPath.
func OutputBasename(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath returns <outDir>/<basename>.webm for inputPath.
func OutputPath(outDir, inputPath string) string {
	return filepath.Join(outDir, OutputBasename(inputPath)+ContainerExt)
}

// SamePath reports whether a and b name the same file after cleaning and
// resolving to absolute paths.
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
