package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnsupportedFormat rejects a load request without changing any state.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// SupportedFormats lists the accepted file extensions, without the dot.
var SupportedFormats = []string{"mp3", "wav", "ogg"}

// CheckFormat validates path against SupportedFormats (case-insensitive).
func CheckFormat(path string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" || !slices.Contains(SupportedFormats, ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(path))
	}
	return nil
}
