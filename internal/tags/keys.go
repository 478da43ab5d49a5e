package tags

import (
	"errors"
	"strconv"
	"strings"
)

// Tag map keys.
const (
	KeyDuration           = "Duration"
	KeyTrackTitle         = "TrackTitle"
	KeyTrackArtist        = "TrackArtist"
	KeyAlbumTitle         = "AlbumTitle"
	KeyAlbumArtist        = "AlbumArtist"
	KeyOriginalAlbumTitle = "OriginalAlbumTitle"
	KeyGenre              = "Genre"
	KeyYear               = "Year"
	KeyTrackNumber        = "TrackNumber"
	KeyDiscNumber         = "DiscNumber"
	KeyComposer           = "Composer"
	KeyComment            = "Comment"
	KeyFileType           = "FileType"
	KeyFormat             = "Format"
)

var (
	// ErrNoTitle means the file has no usable track title.
	ErrNoTitle = errors.New("no track title")
	// ErrNoDuration means the file reports no or zero duration.
	ErrNoDuration = errors.New("no duration")
)

// keySep separates fields of the full key so that adjacent fields cannot
// run into each other.
const keySep = "\x1f"

// GroupingKey returns the coarse key used to bucket files in metadata scans:
// the duration in seconds followed by the normalized title.
func GroupingKey(m map[string]string) (string, error) {
	d, err := duration(m)
	if err != nil {
		return "", err
	}
	title := Normalize(m[KeyTrackTitle])
	if title == "" {
		return "", ErrNoTitle
	}
	return d + title, nil
}

// FullKey returns the key used to confirm a metadata match: duration, artist,
// album and title, all normalized. An empty AlbumArtist falls back to
// TrackArtist and an empty AlbumTitle falls back to OriginalAlbumTitle.
func FullKey(m map[string]string) string {
	d, err := duration(m)
	if err != nil {
		d = "0"
	}
	artist := firstNonEmpty(m[KeyAlbumArtist], m[KeyTrackArtist])
	album := firstNonEmpty(m[KeyAlbumTitle], m[KeyOriginalAlbumTitle])
	return strings.Join([]string{
		d,
		Normalize(artist),
		Normalize(album),
		Normalize(m[KeyTrackTitle]),
	}, keySep)
}

func duration(m map[string]string) (string, error) {
	v := strings.TrimSpace(m[KeyDuration])
	if v == "" {
		return "", ErrNoDuration
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return "", ErrNoDuration
	}
	return strconv.FormatInt(n, 10), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
