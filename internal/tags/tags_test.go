package tags

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Test (Live)":                 "test",
		"test   live":                 "test live",
		"Hello, World! [Remix]":       "hello world",
		"  Spaced   Out  ":            "spaced out",
		"Song {Demo} (2011 Remaster)": "song",
		"ÄRZTE":                       "ärzte",
		"Rock & Roll":                 "rock roll",
		"a(b(c)d)e":                   "ae",
		"":                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestGroupingKey(t *testing.T) {
	a := map[string]string{KeyDuration: "180", KeyTrackTitle: "Test (Live)"}
	b := map[string]string{KeyDuration: "180", KeyTrackTitle: "test   (live) "}
	ka, err := GroupingKey(a)
	require.NoError(t, err)
	kb, err := GroupingKey(b)
	require.NoError(t, err)
	assert.Equal(t, "180test", ka)
	assert.Equal(t, ka, kb)

	k, err := GroupingKey(map[string]string{KeyDuration: "180", KeyTrackTitle: "test   live"})
	require.NoError(t, err)
	assert.Equal(t, "180test live", k)

	_, err = GroupingKey(map[string]string{KeyDuration: "0", KeyTrackTitle: "x"})
	assert.ErrorIs(t, err, ErrNoDuration)
	_, err = GroupingKey(map[string]string{KeyTrackTitle: "x"})
	assert.ErrorIs(t, err, ErrNoDuration)
	_, err = GroupingKey(map[string]string{KeyDuration: "12", KeyTrackTitle: "(bonus)"})
	assert.ErrorIs(t, err, ErrNoTitle)
}

func TestFullKeyFallbacks(t *testing.T) {
	withAlbumArtist := map[string]string{
		KeyDuration: "200", KeyTrackTitle: "Song", KeyAlbumArtist: "The Band", KeyAlbumTitle: "Album",
	}
	withTrackArtist := map[string]string{
		KeyDuration: "200", KeyTrackTitle: "song", KeyTrackArtist: "the band", KeyOriginalAlbumTitle: "ALBUM",
	}
	other := map[string]string{
		KeyDuration: "200", KeyTrackTitle: "song", KeyTrackArtist: "someone else", KeyAlbumTitle: "album",
	}
	assert.Equal(t, FullKey(withAlbumArtist), FullKey(withTrackArtist))
	assert.NotEqual(t, FullKey(withAlbumArtist), FullKey(other))

	// Fields do not bleed into each other.
	x := map[string]string{KeyDuration: "1", KeyAlbumArtist: "ab", KeyAlbumTitle: "c", KeyTrackTitle: "t"}
	y := map[string]string{KeyDuration: "1", KeyAlbumArtist: "a", KeyAlbumTitle: "bc", KeyTrackTitle: "t"}
	assert.NotEqual(t, FullKey(x), FullKey(y))
}

func TestReadTagsID3v2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	data := id3v23(map[string]string{
		"TIT2": "Test (Live)",
		"TPE1": "Track Artist",
		"TALB": "Album",
		"TOAL": "Original Album",
		"TLEN": "180500",
	})
	data = append(data, bytes.Repeat([]byte{0xff}, 256)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := FileReader{}.ReadTags(path)
	require.NoError(t, err)
	assert.Equal(t, "Test (Live)", m[KeyTrackTitle])
	assert.Equal(t, "Track Artist", m[KeyTrackArtist])
	assert.Equal(t, "Album", m[KeyAlbumTitle])
	assert.Equal(t, "Original Album", m[KeyOriginalAlbumTitle])
	assert.Equal(t, "180", m[KeyDuration])
	assert.Equal(t, "MP3", m[KeyFileType])

	k, err := GroupingKey(m)
	require.NoError(t, err)
	assert.Equal(t, "180test", k)
}

func TestReadTagsFLACDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	data := flacStream(44100, 44100*241, "TITLE=Song", "ARTIST=Band")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	m, err := FileReader{}.ReadTags(path)
	require.NoError(t, err)
	assert.Equal(t, "Song", m[KeyTrackTitle])
	assert.Equal(t, "Band", m[KeyTrackArtist])
	assert.Equal(t, "241", m[KeyDuration])
}

func TestFlacDurationRejectsOtherStreams(t *testing.T) {
	_, err := flacDuration(bytes.NewReader([]byte("ID3\x03\x00\x00\x00\x00\x00\x00")))
	assert.ErrorIs(t, err, errNotFLAC)

	secs, err := flacDuration(bytes.NewReader(flacStream(48000, 48000*3+100)))
	require.NoError(t, err)
	assert.EqualValues(t, 3, secs)
}

func TestReadTagsWithoutTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.mp3")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 512), 0o644))

	_, err := FileReader{}.ReadTags(path)
	assert.Error(t, err)

	_, err = FileReader{}.ReadTags(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// id3v23 builds an ID3v2.3 tag holding ISO-8859-1 text frames.
func id3v23(frames map[string]string) []byte {
	ids := make([]string, 0, len(frames))
	for id := range frames {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var body bytes.Buffer
	for _, id := range ids {
		payload := append([]byte{0x00}, frames[id]...)
		body.WriteString(id)
		_ = binary.Write(&body, binary.BigEndian, uint32(len(payload)))
		body.Write([]byte{0, 0})
		body.Write(payload)
	}
	n := body.Len()
	hdr := []byte{'I', 'D', '3', 3, 0, 0,
		byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
	return append(hdr, body.Bytes()...)
}

// flacStream builds a FLAC header with STREAMINFO and, when comments are
// given, a trailing VORBIS_COMMENT block.
func flacStream(rate, samples int64, comments ...string) []byte {
	var b bytes.Buffer
	b.WriteString("fLaC")

	si := make([]byte, 34)
	const channels, bps = 2, 16
	si[10] = byte(rate >> 12)
	si[11] = byte(rate >> 4)
	si[12] = byte(rate<<4) | byte((channels-1)<<1) | byte((bps-1)>>4)
	si[13] = byte((bps-1)&0x0f)<<4 | byte(samples>>32&0x0f)
	binary.BigEndian.PutUint32(si[14:18], uint32(samples))

	last := byte(0)
	if len(comments) == 0 {
		last = 0x80
	}
	b.Write([]byte{last | 0x00, 0, 0, byte(len(si))})
	b.Write(si)

	if len(comments) > 0 {
		var vc bytes.Buffer
		vendor := "dupefinder"
		_ = binary.Write(&vc, binary.LittleEndian, uint32(len(vendor)))
		vc.WriteString(vendor)
		_ = binary.Write(&vc, binary.LittleEndian, uint32(len(comments)))
		for _, c := range comments {
			_ = binary.Write(&vc, binary.LittleEndian, uint32(len(c)))
			vc.WriteString(c)
		}
		n := vc.Len()
		b.Write([]byte{0x80 | 0x04, byte(n >> 16), byte(n >> 8), byte(n)})
		b.Write(vc.Bytes())
	}
	return b.Bytes()
}
