// Package tags reads audio tags into a flat key/value map and derives the
// normalized keys that metadata scans compare.
package tags

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// ErrNoTags is returned when a file carries no tag block the reader understands.
var ErrNoTags = errors.New("no tags found")

// Reader returns the tags of the file at path.
type Reader interface {
	ReadTags(path string) (map[string]string, error)
}

// FileReader reads ID3, MP4, FLAC and Ogg tags with dhowden/tag.
type FileReader struct{}

// ReadTags implements Reader. Duration is always present in the result,
// "0" when it cannot be determined.
func (FileReader) ReadTags(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, ErrNoTags
		}
		return nil, fmt.Errorf("read tags: %w", err)
	}

	m := fromMetadata(md)

	m[KeyDuration] = strconv.FormatInt(fileDuration(f, path, md), 10)
	return m, nil
}

// fileDuration tries the tag length frame, then the audio stream, then ffprobe.
func fileDuration(f *os.File, path string, md tag.Metadata) int64 {
	if secs := rawDuration(md.Raw()); secs > 0 {
		return secs
	}
	if info, err := f.Stat(); err == nil {
		secs, err := streamDuration(f, info.Size(), md.FileType())
		if err == nil && secs > 0 {
			return secs
		}
		slog.Debug("no stream duration", "path", path, "error", err)
	}
	secs, err := externalDuration(path)
	if err != nil {
		slog.Debug("no external duration", "path", path, "error", err)
		return 0
	}
	return secs
}

func fromMetadata(md tag.Metadata) map[string]string {
	m := make(map[string]string)
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			m[k] = v
		}
	}
	set(KeyTrackTitle, md.Title())
	set(KeyTrackArtist, md.Artist())
	set(KeyAlbumTitle, md.Album())
	set(KeyAlbumArtist, md.AlbumArtist())
	set(KeyComposer, md.Composer())
	set(KeyGenre, md.Genre())
	set(KeyComment, md.Comment())
	set(KeyFileType, string(md.FileType()))
	set(KeyFormat, string(md.Format()))
	if y := md.Year(); y > 0 {
		set(KeyYear, strconv.Itoa(y))
	}
	if n, _ := md.Track(); n > 0 {
		set(KeyTrackNumber, strconv.Itoa(n))
	}
	if n, _ := md.Disc(); n > 0 {
		set(KeyDiscNumber, strconv.Itoa(n))
	}
	set(KeyOriginalAlbumTitle, rawString(md.Raw(), "TOAL", "TOT", "originalalbum", "original_album"))
	return m
}

// rawDuration reads the ID3v2 length frame, stored in milliseconds.
func rawDuration(raw map[string]interface{}) int64 {
	v := rawString(raw, "TLEN", "TLE")
	if v == "" {
		return 0
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}

func rawString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
