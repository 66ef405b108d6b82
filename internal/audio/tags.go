package audio

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
)

// Title returns a display name for the track: "Artist - Title" from the ID3
// tag of mp3 files when present, else the file name.
func Title(path string) string {
	fallback := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return fallback
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Artist", "Title"}})
	if err != nil {
		return fallback
	}
	defer tag.Close()

	title := strings.TrimSpace(tag.Title())
	if title == "" {
		return fallback
	}
	if artist := strings.TrimSpace(tag.Artist()); artist != "" {
		return artist + " - " + title
	}
	return title
}
