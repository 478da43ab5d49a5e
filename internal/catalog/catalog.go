// Package catalog is the static registry of file extensions the scanner
// recognises, partitioned into groups that can be enabled or disabled.
package catalog

import (
	"path/filepath"
	"sort"
	"strings"
)

// Group names a family of extensions.
type Group string

const (
	GroupAudio    Group = "audio"
	GroupVideo    Group = "video"
	GroupImage    Group = "image"
	GroupDocument Group = "document"
	GroupArchive  Group = "archive"
	GroupSource   Group = "source"
	GroupIgnored  Group = "ignored"
)

// Entry describes one known extension.
type Entry struct {
	Extension   string // upper case, leading dot: ".MP3"
	Group       Group
	Description string
	// Enabled is the default selection before any override is applied.
	Enabled bool
}

var groupOrder = []Group{
	GroupAudio, GroupVideo, GroupImage, GroupDocument, GroupArchive, GroupSource, GroupIgnored,
}

var table = map[string]Entry{}

func add(g Group, ext, desc string) {
	ext = strings.ToUpper(ext)
	table[ext] = Entry{Extension: ext, Group: g, Description: desc, Enabled: g != GroupIgnored}
}

func init() {
	audio := [][2]string{
		{".3gp", "Multimedia container, may hold AMR, AMR-WB or AMR-WB+ audio"},
		{".8svx", "IFF-8SVX 8-bit sound samples (Amiga)"},
		{".aa", "Low-bitrate audiobook container with DRM"},
		{".aac", "Advanced Audio Coding (ADTS or ADIF container)"},
		{".aax", "Audiobook, DRM protected M4B"},
		{".act", "Lossy ADPCM voice recorder format"},
		{".aiff", "Apple uncompressed CD-quality audio"},
		{".aif", "Apple uncompressed CD-quality audio"},
		{".alac", "Apple Lossless Audio Codec"},
		{".amr", "AMR-NB audio, mostly speech"},
		{".ape", "Monkey's Audio lossless compression"},
		{".au", "Sun/Unix/Java audio"},
		{".awb", "AMR-WB audio, mostly speech"},
		{".cda", "CD audio track descriptor"},
		{".dss", "Olympus Digital Speech Standard"},
		{".dvf", "Sony compressed voice file"},
		{".flac", "Free Lossless Audio Codec"},
		{".gsm", "GSM telephony audio"},
		{".iklax", "iKlax multi-track audio"},
		{".ivs", "3D Solar UK DRM audio"},
		{".m4a", "MPEG-4 audio (AAC or ALAC)"},
		{".m4b", "MPEG-4 audiobook or podcast"},
		{".m4p", "DRM protected AAC from the iTunes store"},
		{".mmf", "Samsung/Yamaha SMAF ringtone"},
		{".movpkg", "Apple lossless and hi-res audio package"},
		{".mp3", "MPEG Layer III Audio"},
		{".mpc", "Musepack"},
		{".msv", "Sony memory stick voice file"},
		{".nmf", "NICE Media Player audio"},
		{".ogg", "Ogg container, usually Vorbis"},
		{".oga", "Ogg audio"},
		{".mogg", "Multi-track Ogg Vorbis"},
		{".opus", "Opus (RFC 6716)"},
		{".ra", "RealAudio"},
		{".rm", "RealMedia"},
		{".raw", "Raw PCM audio"},
		{".rf64", "RF64, a BWF/WAV successor for files over 4 GB"},
		{".sln", "Asterisk signed linear PCM"},
		{".tta", "True Audio lossless"},
		{".voc", "Creative Labs voice file"},
		{".vox", "Dialogic ADPCM"},
		{".wav", "Waveform audio (RIFF)"},
		{".wma", "Windows Media Audio"},
		{".wv", "WavPack"},
	}
	for _, a := range audio {
		add(GroupAudio, a[0], a[1])
	}

	video := [][2]string{
		{".webm", "Royalty-free format created for HTML video"},
		{".m4v", "Apple iTunes video"},
		{".mp4", "MPEG-4 video"},
		{".vob", "DVD video object"},
		{".mov", "QuickTime movie"},
		{".avi", "Audio Video Interleave"},
		{".wmv", "Windows Media Video"},
		{".mts", "AVCHD transport stream"},
		{".mkv", "Matroska video"},
		{".flv", "Flash video"},
	}
	for _, v := range video {
		add(GroupVideo, v[0], v[1])
	}

	for _, ext := range []string{
		".bmp", ".gif", ".jpg", ".jpeg", ".png", ".mpo", ".arw", ".raf", ".tif", ".tiff",
		".nef", ".webp", ".heic", ".heif", ".avif",
	} {
		add(GroupImage, ext, "Image")
	}
	for _, ext := range []string{
		".pdf", ".txt", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".odt", ".ods", ".odp",
	} {
		add(GroupDocument, ext, "Document")
	}
	for _, ext := range []string{".zip", ".tar", ".gz", ".7z", ".rar"} {
		add(GroupArchive, ext, "Archive")
	}
	for _, ext := range []string{".rs", ".js", ".css", ".html", ".go"} {
		add(GroupSource, ext, "Source code")
	}
	for _, ext := range []string{
		".mf", ".gitignore", ".rlib", ".rmeta", ".bin", ".timestamp", ".idx", ".lock", ".a", ".o",
		".ds_store", ".m3u", ".nfo", ".rtf", ".sfv", ".url", ".wpl", ".log", ".bak",
	} {
		add(GroupIgnored, ext, "Ignored by default")
	}
}

// Extension returns the upper-cased extension of path's file name, including
// the leading dot, or "" when the name contains no dot.
func Extension(path string) string {
	name := filepath.Base(path)
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToUpper(name[idx:])
}

// Lookup returns the catalog entry for ext. ext is matched case-insensitively.
func Lookup(ext string) (Entry, bool) {
	e, ok := table[strings.ToUpper(ext)]
	return e, ok
}

// IsKnown reports whether ext belongs to any group.
func IsKnown(ext string) bool {
	_, ok := Lookup(ext)
	return ok
}

// Groups returns all groups in display order.
func Groups() []Group {
	out := make([]Group, len(groupOrder))
	copy(out, groupOrder)
	return out
}

// Entries returns the entries of group g sorted by extension.
func Entries(g Group) []Entry {
	var out []Entry
	for _, e := range table {
		if e.Group == g {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// ValidGroup reports whether g is one of the catalog's groups.
func ValidGroup(g Group) bool {
	for _, k := range groupOrder {
		if k == g {
			return true
		}
	}
	return false
}
