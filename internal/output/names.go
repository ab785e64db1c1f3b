package output

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	canvasPrefix = "TAM_Tone"
	packedPrefix = "TAM_package_"
)

// CanvasFileName names the canvas of (tone, mip).
func CanvasFileName(tone, mip int) string {
	return fmt.Sprintf("%s%d_Mip%d.png", canvasPrefix, tone, mip)
}

// PackedFileName names the packed image of a triplet at mip.
func PackedFileName(name string, mip int) string {
	return fmt.Sprintf("%s%s_mip%d.png", packedPrefix, name, mip)
}

// FileRef identifies the image behind a file name.
type FileRef struct {
	Packed bool
	Tone   int    // canvas files only
	Name   string // packed files only: bright, dark, group<n>
	Mip    int
}

// ParseFileName is the inverse of CanvasFileName and PackedFileName.
func ParseFileName(name string) (FileRef, bool) {
	base, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return FileRef{}, false
	}

	if rest, ok := strings.CutPrefix(base, canvasPrefix); ok {
		toneStr, mipStr, ok := strings.Cut(rest, "_Mip")
		if !ok {
			return FileRef{}, false
		}
		tone, err1 := strconv.Atoi(toneStr)
		mip, err2 := strconv.Atoi(mipStr)
		if err1 != nil || err2 != nil || tone < 0 || mip < 0 {
			return FileRef{}, false
		}
		return FileRef{Tone: tone, Mip: mip}, true
	}

	if rest, ok := strings.CutPrefix(base, packedPrefix); ok {
		i := strings.LastIndex(rest, "_mip")
		if i <= 0 {
			return FileRef{}, false
		}
		mip, err := strconv.Atoi(rest[i+len("_mip"):])
		if err != nil || mip < 0 {
			return FileRef{}, false
		}
		return FileRef{Packed: true, Name: rest[:i], Mip: mip}, true
	}

	return FileRef{}, false
}
